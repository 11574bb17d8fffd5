package models

type AckStatus string

const (
	AckApplied  AckStatus = "applied"
	AckSkipped  AckStatus = "skipped"
	AckFailed   AckStatus = "failed"
	AckRejected AckStatus = "rejected"
)

// Acknowledgment is the Executor's verdict for a command delivery.
type Acknowledgment struct {
	AckStatus  AckStatus `json:"ack_status"`
	AckPayload JSON      `json:"ack_payload,omitempty"`
}

func AppliedAck(payload JSON) *Acknowledgment {
	return &Acknowledgment{AckStatus: AckApplied, AckPayload: payload}
}

func SkippedAck(reason string) *Acknowledgment {
	return &Acknowledgment{AckStatus: AckSkipped, AckPayload: JSON{"reason": reason}}
}

func FailedAck(reason, message string) *Acknowledgment {
	return &Acknowledgment{AckStatus: AckFailed, AckPayload: JSON{"reason": reason, "message": message}}
}

func RejectedAck(reason string) *Acknowledgment {
	return &Acknowledgment{AckStatus: AckRejected, AckPayload: JSON{"reason": reason}}
}

func (a *Acknowledgment) Reason() string {
	if a.AckPayload == nil {
		return ""
	}
	return a.AckPayload.GetString("reason")
}

// CommandStatus maps an ack verdict onto the dispatcher's terminal status.
func (a *Acknowledgment) CommandStatus() CommandStatus {
	switch a.AckStatus {
	case AckApplied:
		return CommandApplied
	case AckSkipped:
		return CommandSkipped
	case AckRejected:
		return CommandRejected
	default:
		return CommandFailed
	}
}
