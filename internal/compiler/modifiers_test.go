package compiler

import "testing"

func TestBase64VariantsEncodesPlainUTF8(t *testing.T) {
	got := base64Variants("cmd.exe", false)
	if len(got) != 1 {
		t.Fatalf("expected exactly one base64 variant, got %d", len(got))
	}
	if got[0] != "Y21kLmV4ZQ==" {
		t.Fatalf("unexpected encoding: %s", got[0])
	}
}

func TestBase64OffsetVariantsProducesThreeAlignments(t *testing.T) {
	got := base64OffsetVariants("whoami", false)
	if len(got) != 3 {
		t.Fatalf("expected 3 offset variants, got %d", len(got))
	}
	for i, v := range got {
		if v == "" {
			t.Fatalf("offset variant %d is empty", i)
		}
	}
	// Each variant must decode to a string that contains the original
	// plaintext once the padding-byte junk at the front is accounted
	// for; the unpadded (pad=0) variant is exactly the canonical encode.
	canonical := base64Variants("whoami", false)[0]
	if got[0] != canonical {
		t.Fatalf("pad=0 variant should match the canonical encoding: got %s want %s", got[0], canonical)
	}
}

func TestWindashVariantsOnlyExpandsLeadingDash(t *testing.T) {
	got := windashVariants("-exec")
	if len(got) != 4 {
		t.Fatalf("expected 4 windash variants, got %d", len(got))
	}
	if got[0] != "-exec" || got[1] != "/exec" {
		t.Fatalf("unexpected variants: %v", got)
	}

	noDash := windashVariants("exec")
	if len(noDash) != 1 || noDash[0] != "exec" {
		t.Fatalf("expected windash to pass through non-dash-leading values unchanged, got %v", noDash)
	}
}

func TestParseFieldKeyStripsIntWrapperAndModifiers(t *testing.T) {
	key := ParseFieldKey("int(EventID)|gt")
	if !key.AsInt {
		t.Fatalf("expected AsInt true")
	}
	if key.Name != "EventID" {
		t.Fatalf("unexpected name: %s", key.Name)
	}
	if !key.has("gt") {
		t.Fatalf("expected gt modifier present")
	}
}

func TestCompileOperatorRejectsUnknownModifier(t *testing.T) {
	key := ParseFieldKey("CommandLine|bogus")
	_, _, _, _, err := compileOperator(key)
	if err == nil {
		t.Fatalf("expected error for unknown modifier")
	}
}
