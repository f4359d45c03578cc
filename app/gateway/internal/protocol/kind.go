package protocol

// 入站消息类型
const (
	TypeAuth        = "auth"
	TypePing        = "ping"
	TypeHeartbeat   = "heartbeat"
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
)

// Kind 入站消息种类的封闭枚举。
// 未识别的类型显式归入 KindUnknown，由调用方决定软失败行为。
type Kind int

const (
	KindUnknown Kind = iota
	KindAuth
	KindPing
	KindHeartbeat
	KindSubscribe
	KindUnsubscribe
)

// KindOf 将线上 type 字段映射为消息种类
func KindOf(msgType string) Kind {
	switch msgType {
	case TypeAuth:
		return KindAuth
	case TypePing:
		return KindPing
	case TypeHeartbeat:
		return KindHeartbeat
	case TypeSubscribe:
		return KindSubscribe
	case TypeUnsubscribe:
		return KindUnsubscribe
	default:
		return KindUnknown
	}
}

// String 返回种类名称
func (k Kind) String() string {
	switch k {
	case KindAuth:
		return TypeAuth
	case KindPing:
		return TypePing
	case KindHeartbeat:
		return TypeHeartbeat
	case KindSubscribe:
		return TypeSubscribe
	case KindUnsubscribe:
		return TypeUnsubscribe
	default:
		return "unknown"
	}
}

// RequiredFields 返回该种类必需的业务字段
func (k Kind) RequiredFields() []string {
	switch k {
	case KindAuth:
		return []string{"token", "userId"}
	case KindSubscribe, KindUnsubscribe:
		return []string{"eventType"}
	default:
		return nil
	}
}
