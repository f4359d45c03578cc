package protocol

import (
	"encoding/json"
	"time"
)

// Envelope 网关线上协议的消息信封。
// 序列化为扁平 JSON 对象：type 与 timestamp 为固定字段，
// 其余业务字段平铺在同级。
type Envelope struct {
	// Type 消息类型
	Type string

	// Timestamp 毫秒时间戳
	Timestamp int64

	// Fields 类型相关的业务字段
	Fields map[string]any
}

// NewEnvelope 创建指定类型的信封，时间戳取当前时间。
func NewEnvelope(msgType string, fields map[string]any) *Envelope {
	return &Envelope{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Fields:    fields,
	}
}

// MarshalJSON 将信封平铺为单层 JSON 对象
func (e *Envelope) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(e.Fields)+2)
	for k, v := range e.Fields {
		flat[k] = v
	}
	flat["type"] = e.Type
	flat["timestamp"] = e.Timestamp
	return json.Marshal(flat)
}

// UnmarshalJSON 从单层 JSON 对象还原信封
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}

	if t, ok := flat["type"].(string); ok {
		e.Type = t
	}
	if ts, ok := flat["timestamp"].(float64); ok {
		e.Timestamp = int64(ts)
	}
	delete(flat, "type")
	delete(flat, "timestamp")
	e.Fields = flat
	return nil
}

// StringField 读取字符串业务字段
func (e *Envelope) StringField(key string) (string, bool) {
	v, ok := e.Fields[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// HasField 判断业务字段是否存在且非空字符串
func (e *Envelope) HasField(key string) bool {
	s, ok := e.StringField(key)
	return ok && s != ""
}
