package mailbox

import (
	"encoding/json"
	"sync"
	"testing"
)

func TestSubmitTake(t *testing.T) {
	for _, cmd := range []Command{CommandImport, CommandExport, CommandSourcemap} {
		m := New()
		m.Submit(cmd)

		got, ok := m.Take()
		if !ok {
			t.Fatalf("Take() after Submit(%q) reported empty mailbox", cmd)
		}
		if got != cmd {
			t.Errorf("Take() = %q, want %q", got, cmd)
		}

		// A second take must find the slot cleared.
		if got, ok := m.Take(); ok {
			t.Errorf("second Take() returned %q, want empty", got)
		}
	}
}

func TestTakeEmpty(t *testing.T) {
	m := New()

	if got, ok := m.Take(); ok {
		t.Errorf("Take() on fresh mailbox returned %q, want empty", got)
	}
	// Taking from an empty mailbox must stay empty.
	if _, ok := m.Take(); ok {
		t.Error("repeated Take() on empty mailbox reported a pending command")
	}
}

func TestSubmitOverwrites(t *testing.T) {
	m := New()
	m.Submit(CommandImport)
	m.Submit(CommandExport)

	got, ok := m.Take()
	if !ok {
		t.Fatal("Take() reported empty mailbox after two submits")
	}
	if got != CommandExport {
		t.Errorf("Take() = %q, want %q (last write wins)", got, CommandExport)
	}
	if _, ok := m.Take(); ok {
		t.Error("overwritten command became observable on second Take()")
	}
}

func TestConcurrentSubmitTake(t *testing.T) {
	m := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.Submit(CommandImport)
		}()
		go func() {
			defer wg.Done()
			if cmd, ok := m.Take(); ok && cmd != CommandImport {
				t.Errorf("Take() observed torn value %q", cmd)
			}
		}()
	}
	wg.Wait()
}

func TestParse(t *testing.T) {
	tests := []struct {
		token   string
		want    Command
		wantErr bool
	}{
		{token: "import", want: CommandImport},
		{token: "export", want: CommandExport},
		{token: "sourcemap", want: CommandSourcemap},
		{token: "Import", wantErr: true},
		{token: "sync", wantErr: true},
		{token: "", wantErr: true},
	}

	for _, tc := range tests {
		got, err := Parse(tc.token)
		if tc.wantErr {
			if err == nil {
				t.Errorf("Parse(%q) = %q, want error", tc.token, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q) failed: %v", tc.token, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Parse(%q) = %q, want %q", tc.token, got, tc.want)
		}
	}
}

func TestCommandJSON(t *testing.T) {
	var cmd Command
	if err := json.Unmarshal([]byte(`"export"`), &cmd); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if cmd != CommandExport {
		t.Errorf("unmarshal = %q, want %q", cmd, CommandExport)
	}

	if err := json.Unmarshal([]byte(`"restart"`), &cmd); err == nil {
		t.Error("unmarshal accepted unknown command token")
	}
	if err := json.Unmarshal([]byte(`42`), &cmd); err == nil {
		t.Error("unmarshal accepted non-string payload")
	}

	data, err := json.Marshal(CommandImport)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `"import"` {
		t.Errorf("marshal = %s, want %q", data, `"import"`)
	}
}
