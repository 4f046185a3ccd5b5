package document

import "testing"

func TestGetDottedPath(t *testing.T) {
	root := FromAny(map[string]interface{}{
		"Event": map[string]interface{}{
			"System": map[string]interface{}{
				"Provider": "Microsoft-Windows-Sysmon",
				"EventID":  1,
			},
			"EventData": map[string]interface{}{
				"Image": `C:\tools\mimikatz.exe`,
			},
		},
	})

	if got := Get(root, "Event.System.Provider").String(); got != "Microsoft-Windows-Sysmon" {
		t.Fatalf("unexpected provider: %q", got)
	}
	if i, ok := Get(root, "Event.System.EventID").Int64(); !ok || i != 1 {
		t.Fatalf("unexpected event id: %v ok=%v", i, ok)
	}
	if got := Get(root, "Event.EventData.Image").String(); got != `C:\tools\mimikatz.exe` {
		t.Fatalf("unexpected image: %q", got)
	}
}

func TestGetMissingPathIsAbsentNotNull(t *testing.T) {
	root := FromAny(map[string]interface{}{"A": 1})
	v := Get(root, "A.B.C")
	if !v.IsAbsent() {
		t.Fatalf("expected Absent, got kind=%v", v.Kind())
	}
	if v.IsNull() {
		t.Fatalf("Absent must not equal Null")
	}
}

func TestArrayIndexing(t *testing.T) {
	root := FromAny(map[string]interface{}{
		"foo": []interface{}{"a", "b", "c"},
	})
	if got := Get(root, "foo[1]").String(); got != "b" {
		t.Fatalf("expected b, got %q", got)
	}
	if v := Get(root, "foo[9]"); !v.IsAbsent() {
		t.Fatalf("expected Absent for out-of-range index")
	}
}

func TestWildcardSegment(t *testing.T) {
	root := FromAny(map[string]interface{}{
		"EventData": map[string]interface{}{
			"A": "1",
			"B": "2",
		},
	})
	vs := IterWildcard(root, "EventData.*")
	if len(vs) != 2 {
		t.Fatalf("expected 2 wildcard matches, got %d", len(vs))
	}
}

func TestCoerceIntOnNonNumericFailsCleanly(t *testing.T) {
	root := FromAny(map[string]interface{}{"A": "not-a-number"})
	if _, ok := CoerceInt(root, "A"); ok {
		t.Fatalf("expected coercion to fail")
	}
}

func TestCoerceIntOnNumericString(t *testing.T) {
	root := FromAny(map[string]interface{}{"A": "42"})
	i, ok := CoerceInt(root, "A")
	if !ok || i != 42 {
		t.Fatalf("expected 42, got %d ok=%v", i, ok)
	}
}

func TestRecordKVContainerLazyAndCached(t *testing.T) {
	root := FromAny(map[string]interface{}{
		"EventData": map[string]interface{}{
			"CommandLine": "user=alice;host=box1",
		},
	})
	rec := NewRecord(root)
	kv := rec.KV("EventData.CommandLine", ";", "=")
	m, ok := kv.MapValue()
	if !ok {
		t.Fatalf("expected map value")
	}
	if m["user"].String() != "alice" || m["host"].String() != "box1" {
		t.Fatalf("unexpected kv contents: %+v", m)
	}

	// second call must hit the cache and return the same derived value
	kv2 := rec.KV("EventData.CommandLine", ";", "=")
	m2, _ := kv2.MapValue()
	if len(m2) != len(m) {
		t.Fatalf("expected cached kv view to match")
	}
}
