package moderation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/PancyStudios/PancyGuardGo/pkg/models"
)

// fakeActions records every platform call and fails the ones configured.
type fakeActions struct {
	calls   []string
	fail    map[string]error
	lastDM  string
	lastRep *Report
}

func (a *fakeActions) step(name string) error {
	a.calls = append(a.calls, name)
	return a.fail[name]
}

func (a *fakeActions) DeleteMessage(_ context.Context, _, _ string) error {
	return a.step("delete_message")
}

func (a *fakeActions) TimeoutUser(_ context.Context, _, _ string) error {
	return a.step("timeout_user")
}

func (a *fakeActions) SendDirectMessage(_ context.Context, _, content string) error {
	a.lastDM = content
	return a.step("notify_author")
}

func (a *fakeActions) PostReport(_ context.Context, report *Report) error {
	a.lastRep = report
	return a.step("post_report")
}

type fakeRegistry struct {
	count atomic.Int64
	err   error
}

func (r *fakeRegistry) RecordTrigger(string) error {
	r.count.Add(1)
	return r.err
}

func testViolation() (*Message, *Violation) {
	msg := &Message{
		GuildID:    "g1",
		ChannelID:  "c1",
		MessageID:  "m1",
		AuthorID:   "u1",
		AuthorName: "pancy",
		Content:    "contenido prohibido",
	}
	v := &Violation{
		Kind: models.BlacklistKindText,
		Entry: &models.BlacklistEntry{
			ID:      "e1",
			GuildID: "g1",
			Kind:    models.BlacklistKindText,
			Content: "contenido prohibido",
			Reason:  "spam de raid",
		},
		MatchedContent: "contenido prohibido",
	}
	return msg, v
}

func TestExecuteFullSequence(t *testing.T) {
	actions := &fakeActions{}
	registry := &fakeRegistry{}
	var warns []string
	var published []*Report

	e := NewEnforcer(actions, registry, nil,
		func(guildID, userID, warnID, reason string) error {
			warns = append(warns, reason)
			return nil
		},
		func(r *Report) { published = append(published, r) },
	)

	msg, v := testViolation()
	result := e.Execute(context.Background(), msg, v)

	if result.Skipped {
		t.Fatal("result unexpectedly skipped")
	}
	if len(result.Failed()) != 0 {
		t.Fatalf("unexpected failures: %+v", result.Failed())
	}

	want := []string{"delete_message", "notify_author", "timeout_user", "post_report"}
	if len(actions.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", actions.calls, want)
	}
	for i, name := range want {
		if actions.calls[i] != name {
			t.Errorf("calls[%d] = %s, want %s", i, actions.calls[i], name)
		}
	}

	if registry.count.Load() != 1 {
		t.Errorf("RecordTrigger count = %d", registry.count.Load())
	}
	if len(warns) != 1 || warns[0] != "AutoMod: spam de raid" {
		t.Errorf("warns = %v", warns)
	}
	if len(published) != 1 || published[0] != result.Report {
		t.Errorf("publish got %v, report %v", published, result.Report)
	}
	if actions.lastRep == nil || actions.lastRep.EntryID != "e1" || actions.lastRep.Reason != "spam de raid" {
		t.Errorf("report = %+v", actions.lastRep)
	}
}

func TestExecuteExemptAuthorSkipsEverything(t *testing.T) {
	actions := &fakeActions{}
	registry := &fakeRegistry{}
	e := NewEnforcer(actions, registry, func(*Message) bool { return true }, nil, nil)

	msg, v := testViolation()
	result := e.Execute(context.Background(), msg, v)

	if !result.Skipped {
		t.Fatal("expected Skipped result")
	}
	if len(actions.calls) != 0 {
		t.Errorf("exempt author still triggered actions: %v", actions.calls)
	}
	if registry.count.Load() != 0 {
		t.Error("exempt author still recorded a trigger")
	}
}

func TestExecuteFailedStepDoesNotStopSequence(t *testing.T) {
	actions := &fakeActions{fail: map[string]error{
		"delete_message": errors.New("missing permissions"),
		"timeout_user":   errors.New("role hierarchy"),
	}}
	registry := &fakeRegistry{}
	e := NewEnforcer(actions, registry, nil, nil, nil)

	msg, v := testViolation()
	result := e.Execute(context.Background(), msg, v)

	// Todos los pasos se intentan aunque fallen los primeros.
	want := []string{"delete_message", "notify_author", "timeout_user", "post_report"}
	if len(actions.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", actions.calls, want)
	}
	if registry.count.Load() != 1 {
		t.Error("trigger not recorded after delete failure")
	}

	failed := result.Failed()
	if len(failed) != 2 {
		t.Fatalf("Failed() = %+v, want 2 entries", failed)
	}
	if failed[0].Step != "delete_message" || failed[1].Step != "timeout_user" {
		t.Errorf("failed steps = %+v", failed)
	}
}

func TestExecuteDMFailureIsTolerated(t *testing.T) {
	actions := &fakeActions{fail: map[string]error{
		"notify_author": errors.New("cannot send messages to this user"),
	}}
	e := NewEnforcer(actions, &fakeRegistry{}, nil, nil, nil)

	msg, v := testViolation()
	result := e.Execute(context.Background(), msg, v)

	// MD cerrados: la secuencia sigue hasta el reporte.
	if actions.calls[len(actions.calls)-1] != "post_report" {
		t.Errorf("sequence stopped early: %v", actions.calls)
	}
	if result.Report == nil {
		t.Error("report missing despite DM failure")
	}
}

func TestExecuteRegistryFailureIsIsolated(t *testing.T) {
	actions := &fakeActions{}
	registry := &fakeRegistry{err: errors.New("store offline")}
	e := NewEnforcer(actions, registry, nil, nil, nil)

	msg, v := testViolation()
	result := e.Execute(context.Background(), msg, v)

	failed := result.Failed()
	if len(failed) != 1 || failed[0].Step != "record_trigger" {
		t.Fatalf("Failed() = %+v", failed)
	}
	if actions.calls[len(actions.calls)-1] != "post_report" {
		t.Errorf("sequence stopped early: %v", actions.calls)
	}
}

func TestExecuteConcurrentTriggerCounting(t *testing.T) {
	registry := &fakeRegistry{}
	const n = 50

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e := NewEnforcer(&fakeActions{}, registry, nil, nil, nil)
			msg, v := testViolation()
			e.Execute(context.Background(), msg, v)
		}()
	}
	wg.Wait()

	if registry.count.Load() != n {
		t.Errorf("RecordTrigger count = %d, want %d", registry.count.Load(), n)
	}
}

func TestReportPreviewTruncation(t *testing.T) {
	actions := &fakeActions{}
	e := NewEnforcer(actions, &fakeRegistry{}, nil, nil, nil)

	msg, v := testViolation()
	long := make([]rune, 500)
	for i := range long {
		long[i] = 'ñ'
	}
	msg.Content = string(long)

	result := e.Execute(context.Background(), msg, v)
	preview := []rune(result.Report.MessagePreview)
	if len(preview) != maxPreviewLen+1 {
		t.Errorf("preview length = %d runes, want %d plus ellipsis", len(preview), maxPreviewLen+1)
	}
	if preview[len(preview)-1] != '…' {
		t.Error("preview not terminated with ellipsis")
	}
}
