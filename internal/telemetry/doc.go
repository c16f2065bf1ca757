// Package telemetry 为 agentrelay 装配 OpenTelemetry SDK。
//
// Init 根据 telemetry 配置创建 TracerProvider 与 MeterProvider，编排器的
// handoff.execute / handoff.hop span 经由 TracerProvider 导出。禁用时不创建
// 导出器，TracerProvider 回落到全局 noop 实现。WithSpanExporter 与
// WithMetricReader 用于注入内存导出器，WithoutGlobal 不修改 otel 全局状态。
package telemetry
