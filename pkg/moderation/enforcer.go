package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyGuardGo/pkg/logger"
	"github.com/PancyStudios/PancyGuardGo/pkg/models"
	"github.com/google/uuid"
)

const (
	// maxPreviewLen bounds the original-message preview in reports.
	maxPreviewLen = 180
	// maxMatchedLen bounds the matched-content field in reports.
	maxMatchedLen = 120
)

// Actions is the platform side of enforcement. Every method is fallible and
// independently logged; the Discord implementation lives in pkg/discord.
// TimeoutUser resolves the suspension duration from the guild's settings.
type Actions interface {
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	TimeoutUser(ctx context.Context, guildID, userID string) error
	SendDirectMessage(ctx context.Context, userID, content string) error
	PostReport(ctx context.Context, report *Report) error
}

// TriggerRecorder is the slice of the registry enforcement needs.
type TriggerRecorder interface {
	RecordTrigger(id string) error
}

// WarnRecorder appends an automatic warning to a user's record.
type WarnRecorder func(guildID, userID, warnID, reason string) error

// ExemptFunc decides whether the author is exempt from enforcement
// (administrators and trusted moderator roles).
type ExemptFunc func(msg *Message) bool

// PublishFunc fans a report out to side channels (MQTT bus, modlog feed).
type PublishFunc func(report *Report)

// Report is the structured record of one enforced violation, posted to the
// guild's moderation channel and published on the event bus.
type Report struct {
	GuildID        string               `json:"guildId"`
	ChannelID      string               `json:"channelId"`
	MessageID      string               `json:"messageId"`
	AuthorID       string               `json:"authorId"`
	AuthorName     string               `json:"authorName"`
	Kind           models.BlacklistKind `json:"kind"`
	EntryID        string               `json:"entryId"`
	Reason         string               `json:"reason"`
	MatchedContent string               `json:"matchedContent"`
	MessagePreview string               `json:"messagePreview"`
	Timestamp      time.Time            `json:"timestamp"`
}

// StepResult records the outcome of one enforcement step.
type StepResult struct {
	Step string
	Err  error
}

// EnforcementResult accumulates what the workflow did, so partial failures
// are inspectable instead of buried in logs.
type EnforcementResult struct {
	Skipped bool
	Steps   []StepResult
	Report  *Report
}

// Failed returns the steps that reported an error.
func (r *EnforcementResult) Failed() []StepResult {
	var failed []StepResult
	for _, s := range r.Steps {
		if s.Err != nil {
			failed = append(failed, s)
		}
	}
	return failed
}

// Enforcer applies the graduated response to a confirmed violation. Each
// step is isolated: a failing step logs and the sequence continues.
type Enforcer struct {
	actions    Actions
	registry   TriggerRecorder
	isExempt   ExemptFunc
	recordWarn WarnRecorder
	publish    PublishFunc
}

// NewEnforcer wires the workflow. recordWarn and publish may be nil when the
// corresponding concerns are disabled.
func NewEnforcer(actions Actions, registry TriggerRecorder, isExempt ExemptFunc, recordWarn WarnRecorder, publish PublishFunc) *Enforcer {
	return &Enforcer{
		actions:    actions,
		registry:   registry,
		isExempt:   isExempt,
		recordWarn: recordWarn,
		publish:    publish,
	}
}

// Execute runs the enforcement sequence for one violation: delete the
// message, record the trigger, record a warn, notify the author, apply the
// timeout and post the moderation report. Exempt authors skip everything
// (the match stays a detection-only signal for them).
func (e *Enforcer) Execute(ctx context.Context, msg *Message, v *Violation) *EnforcementResult {
	result := &EnforcementResult{}

	if e.isExempt != nil && e.isExempt(msg) {
		logger.Debug(fmt.Sprintf("Autor exento de auto-mod: guild=%s user=%s entry=%s", msg.GuildID, msg.AuthorID, v.Entry.ID), "Enforcer")
		result.Skipped = true
		return result
	}

	report := e.buildReport(msg, v)
	result.Report = report

	e.run(result, "delete_message", func() error {
		return e.actions.DeleteMessage(ctx, msg.ChannelID, msg.MessageID)
	})

	e.run(result, "record_trigger", func() error {
		return e.registry.RecordTrigger(v.Entry.ID)
	})

	if e.recordWarn != nil {
		e.run(result, "record_warn", func() error {
			return e.recordWarn(msg.GuildID, msg.AuthorID, uuid.New().String(), "AutoMod: "+v.Entry.Reason)
		})
	}

	// La notificación puede fallar en silencio: tener los MD cerrados es una
	// condición normal, no un error.
	if err := e.actions.SendDirectMessage(ctx, msg.AuthorID, notifyText(v)); err != nil {
		logger.Debug(fmt.Sprintf("No se pudo notificar al usuario %s: %v", msg.AuthorID, err), "Enforcer")
		result.Steps = append(result.Steps, StepResult{Step: "notify_author", Err: err})
	} else {
		result.Steps = append(result.Steps, StepResult{Step: "notify_author"})
	}

	e.run(result, "timeout_user", func() error {
		return e.actions.TimeoutUser(ctx, msg.GuildID, msg.AuthorID)
	})

	e.run(result, "post_report", func() error {
		return e.actions.PostReport(ctx, report)
	})

	if e.publish != nil {
		e.publish(report)
	}

	return result
}

// run executes one step, recording and logging its outcome without
// interrupting the sequence.
func (e *Enforcer) run(result *EnforcementResult, step string, fn func() error) {
	err := fn()
	if err != nil {
		logger.Error(fmt.Sprintf("Paso de enforcement '%s' falló: %v", step, err), "Enforcer")
	}
	result.Steps = append(result.Steps, StepResult{Step: step, Err: err})
}

// buildReport assembles the moderator-facing record, with long blobs
// truncated to bounded previews.
func (e *Enforcer) buildReport(msg *Message, v *Violation) *Report {
	return &Report{
		GuildID:        msg.GuildID,
		ChannelID:      msg.ChannelID,
		MessageID:      msg.MessageID,
		AuthorID:       msg.AuthorID,
		AuthorName:     msg.AuthorName,
		Kind:           v.Kind,
		EntryID:        v.Entry.ID,
		Reason:         v.Entry.Reason,
		MatchedContent: truncate(v.MatchedContent, maxMatchedLen),
		MessagePreview: truncate(msg.Content, maxPreviewLen),
		Timestamp:      time.Now(),
	}
}

// notifyText is the private explanation sent to the author.
func notifyText(v *Violation) string {
	return fmt.Sprintf(
		"🚫 Tu mensaje fue eliminado por el sistema de moderación automática.\n**Razón:** %s\nSi crees que esto es un error, contacta con el equipo de moderación del servidor.",
		v.Entry.Reason,
	)
}

// truncate bounds s to max runes, appending an ellipsis when cut.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
