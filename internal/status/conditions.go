package status

import "time"

// Condition types reported by the readiness endpoint.
const (
	ConditionScriptReady  = "ScriptReady"
	ConditionLibvirtReady = "LibvirtReady"
)

// ConditionStatus represents the status of a condition.
type ConditionStatus string

const (
	ConditionTrue    ConditionStatus = "True"
	ConditionFalse   ConditionStatus = "False"
	ConditionUnknown ConditionStatus = "Unknown"
)

// Condition is one readiness check result.
type Condition struct {
	Type               string          `json:"type" yaml:"type"`
	Status             ConditionStatus `json:"status" yaml:"status"`
	Reason             string          `json:"reason,omitempty" yaml:"reason,omitempty"`
	Message            string          `json:"message,omitempty" yaml:"message,omitempty"`
	LastTransitionTime time.Time       `json:"lastTransitionTime" yaml:"lastTransitionTime"`
}

// Report is a set of conditions keyed by type.
type Report struct {
	Conditions []Condition `json:"conditions" yaml:"conditions"`
}

// SetCondition adds or updates a condition in the report.
// The LastTransitionTime is only updated if the status changes.
func (r *Report) SetCondition(condType string, status ConditionStatus, reason, message string) {
	now := time.Now()

	for i := range r.Conditions {
		if r.Conditions[i].Type == condType {
			existing := &r.Conditions[i]
			if existing.Status != status {
				existing.LastTransitionTime = now
			}
			existing.Status = status
			existing.Reason = reason
			existing.Message = message
			return
		}
	}

	r.Conditions = append(r.Conditions, Condition{
		Type:               condType,
		Status:             status,
		Reason:             reason,
		Message:            message,
		LastTransitionTime: now,
	})
}

// MarkTrue sets a condition to True.
func (r *Report) MarkTrue(condType, reason string) {
	r.SetCondition(condType, ConditionTrue, reason, "")
}

// MarkFalse sets a condition to False with the error as message.
func (r *Report) MarkFalse(condType, reason string, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	r.SetCondition(condType, ConditionFalse, reason, msg)
}

// GetCondition returns a condition by type, or nil if not found.
func (r *Report) GetCondition(condType string) *Condition {
	for i := range r.Conditions {
		if r.Conditions[i].Type == condType {
			return &r.Conditions[i]
		}
	}
	return nil
}

// IsConditionTrue returns true if the condition exists and has status True.
func (r *Report) IsConditionTrue(condType string) bool {
	cond := r.GetCondition(condType)
	return cond != nil && cond.Status == ConditionTrue
}

// Ready returns true when no condition is False. Unknown conditions do not
// block readiness.
func (r *Report) Ready() bool {
	for _, c := range r.Conditions {
		if c.Status == ConditionFalse {
			return false
		}
	}
	return true
}
