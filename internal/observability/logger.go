package observability

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypePlan        EventType = "plan"
	EventTypeStep        EventType = "step"
	EventTypeResolve     EventType = "resolve"
	EventTypeToolCall    EventType = "tool_call"
	EventTypeToolResult  EventType = "tool_result"
	EventTypePolicyCheck EventType = "policy_check"
	EventTypeHeartbeat   EventType = "heartbeat"
	EventTypeLLM         EventType = "llm"
)

// Event represents a structured log entry. RequestID ties every event of one
// orchestration request together; SessionID identifies the conversation.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Logger handles structured logging.
type Logger struct {
	llmLogPath string
	maxSize    int64
}

// NewLogger returns a logger that emits events to stdout. LLM events are
// additionally appended to llmLogPath; an empty path disables the file sink.
func NewLogger(llmLogPath string) *Logger {
	return &Logger{
		llmLogPath: llmLogPath,
		maxSize:    10 * 1024 * 1024, // 10MB
	}
}

// Log emits a structured JSON event to stdout.
func (l *Logger) Log(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		fmt.Printf("{\"error\": \"failed to marshal event: %v\"}\n", err)
		return
	}
	fmt.Println(string(data))

	if evt.Type == EventTypeLLM && l.llmLogPath != "" {
		l.writeToFile(data)
	}
}

func (l *Logger) writeToFile(data []byte) {
	if err := os.MkdirAll(filepath.Dir(l.llmLogPath), 0755); err != nil {
		log.Printf("failed to create log directory: %v", err)
		return
	}

	// Check size before writing
	info, err := os.Stat(l.llmLogPath)
	if err == nil && info.Size() > l.maxSize {
		l.rotateLogs()
	}

	f, err := os.OpenFile(l.llmLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file: %v", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		log.Printf("failed to write to log file: %v", err)
	}
}

func (l *Logger) rotateLogs() {
	// Simple rotation: keep one .old file
	oldPath := l.llmLogPath + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(l.llmLogPath, oldPath)
}

// Helper methods for common events

func (l *Logger) LogPlan(sessionID, requestID string, stepCount int, direct bool) {
	l.Log(Event{
		Type:      EventTypePlan,
		SessionID: sessionID,
		RequestID: requestID,
		Data: map[string]any{
			"steps":  stepCount,
			"direct": direct,
		},
	})
}

func (l *Logger) LogStep(sessionID, requestID string, stepNumber int, tool string) {
	l.Log(Event{
		Type:      EventTypeStep,
		SessionID: sessionID,
		RequestID: requestID,
		Data: map[string]any{
			"step": stepNumber,
			"tool": tool,
		},
	})
}

func (l *Logger) LogResolve(sessionID, requestID string, stepNumber int, token string) {
	l.Log(Event{
		Type:      EventTypeResolve,
		SessionID: sessionID,
		RequestID: requestID,
		Data: map[string]any{
			"step":  stepNumber,
			"token": token,
		},
	})
}

func (l *Logger) LogToolCall(sessionID, requestID, tool, input string) {
	l.Log(Event{
		Type:      EventTypeToolCall,
		SessionID: sessionID,
		RequestID: requestID,
		Data: map[string]string{
			"tool":  tool,
			"input": input,
		},
	})
}

func (l *Logger) LogToolResult(sessionID, requestID, tool, result string) {
	l.Log(Event{
		Type:      EventTypeToolResult,
		SessionID: sessionID,
		RequestID: requestID,
		Data: map[string]string{
			"tool":   tool,
			"result": result,
		},
	})
}

func (l *Logger) LogPolicyCheck(sessionID, requestID, tool, effect, reason string) {
	l.Log(Event{
		Type:      EventTypePolicyCheck,
		SessionID: sessionID,
		RequestID: requestID,
		Data: map[string]string{
			"tool":   tool,
			"effect": effect,
			"reason": reason,
		},
	})
}

func (l *Logger) LogHeartbeat() {
	l.Log(Event{
		Type: EventTypeHeartbeat,
		Data: map[string]string{"status": "alive"},
	})
}

func (l *Logger) LogLLM(sessionID, requestID string, prompt any, response string) {
	l.Log(Event{
		Type:      EventTypeLLM,
		SessionID: sessionID,
		RequestID: requestID,
		Data: map[string]any{
			"prompt":   prompt,
			"response": response,
		},
	})
}
