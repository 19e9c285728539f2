package hermes

import (
	"encoding/json"
	"testing"
)

func TestMessagesUpdatedParsing(t *testing.T) {
	raw := `{
		"tab_id": "tab-001",
		"site": "claude",
		"conversationId": "0f1e-22",
		"messageCount": 12
	}`

	var n MessagesUpdated
	if err := json.Unmarshal([]byte(raw), &n); err != nil {
		t.Fatalf("failed to parse MessagesUpdated: %v", err)
	}

	if n.TabID != "tab-001" {
		t.Errorf("expected tab_id 'tab-001', got '%s'", n.TabID)
	}
	if n.Site != "claude" {
		t.Errorf("expected site 'claude', got '%s'", n.Site)
	}
	if n.ConversationID != "0f1e-22" {
		t.Errorf("expected conversationId '0f1e-22', got '%s'", n.ConversationID)
	}
	if n.MessageCount != 12 {
		t.Errorf("expected messageCount 12, got %d", n.MessageCount)
	}
}

func TestConversationChangedFieldNames(t *testing.T) {
	data, err := json.Marshal(ConversationChanged{TabID: "t", Site: "gemini", ConversationID: "abc"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"tab_id", "site", "conversationId"} {
		if _, ok := m[key]; !ok {
			t.Errorf("missing field %q in %s", key, data)
		}
	}
}
