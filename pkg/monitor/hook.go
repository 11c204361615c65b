package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// DefaultHookEvent is the hook the monitor is installed on.
const DefaultHookEvent = "PostToolUse"

// HookInput is the subset of the host's hook payload the monitor reads.
type HookInput struct {
	SessionID      string `json:"session_id"`
	HookEventName  string `json:"hook_event_name,omitempty"`
	ToolName       string `json:"tool_name,omitempty"`
	TranscriptPath string `json:"transcript_path,omitempty"`
	Cwd            string `json:"cwd,omitempty"`
}

// HookOutput asks the host to inject additional context into the conversation.
type HookOutput struct {
	HookSpecificOutput HookSpecificOutput `json:"hookSpecificOutput"`
}

type HookSpecificOutput struct {
	HookEventName     string `json:"hookEventName"`
	AdditionalContext string `json:"additionalContext"`
}

// ReadHookInput reads r to EOF and decodes the payload.
func ReadHookInput(r io.Reader) (*HookInput, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read hook input: %w", err)
	}
	var in HookInput
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decode hook input: %w", err)
	}
	return &in, nil
}

// WriteHookOutput writes a single JSON document with no trailing newline.
func WriteHookOutput(w io.Writer, eventName, message string) error {
	if eventName == "" {
		eventName = DefaultHookEvent
	}
	body, err := json.Marshal(HookOutput{
		HookSpecificOutput: HookSpecificOutput{
			HookEventName:     eventName,
			AdditionalContext: message,
		},
	})
	if err != nil {
		return fmt.Errorf("marshal hook output: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write hook output: %w", err)
	}
	return nil
}

// ServeHook handles one hook invocation end to end. It never fails: every
// error, and any panic, ends the invocation with no output so the host's
// tool call is never affected.
func (m *Monitor) ServeHook(ctx context.Context, in io.Reader, out io.Writer) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Debug("context monitor recovered", "panic", r)
		}
	}()

	input, err := ReadHookInput(in)
	if err != nil {
		m.logger.Debug("context monitor skipped", "error", err)
		return
	}

	res, err := m.Check(ctx, input.SessionID)
	if err != nil {
		m.logger.Debug("context monitor skipped", "session", input.SessionID, "error", err)
		return
	}
	if res.Outcome != OutcomeEmitted {
		m.logger.Debug("context monitor quiet",
			"session", input.SessionID,
			"outcome", res.Outcome,
			"reason", res.Reason,
		)
		return
	}

	if err := WriteHookOutput(out, input.HookEventName, res.Message); err != nil {
		m.logger.Debug("context monitor output failed", "session", input.SessionID, "error", err)
	}
}
