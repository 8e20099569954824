package catalog

import (
	"testing"
)

func TestArgumentValidate(t *testing.T) {
	tests := []struct {
		name  string
		spec  ArgumentSpec
		raw   string
		want  string
		valid bool
	}{
		{"string passes", ArgumentSpec{Type: TypeString}, "hello", "hello", true},
		{"string trims", ArgumentSpec{Type: TypeString}, "  hello  ", "hello", true},
		{"empty rejected", ArgumentSpec{Type: TypeString}, "   ", "", false},
		{"path passes", ArgumentSpec{Type: TypePath}, "./src", "./src", true},
		{"int passes", ArgumentSpec{Type: TypeInt}, "42", "42", true},
		{"int rejects text", ArgumentSpec{Type: TypeInt}, "forty", "", false},
		{"bool yes", ArgumentSpec{Type: TypeBool}, "yes", "true", true},
		{"bool ON", ArgumentSpec{Type: TypeBool}, "ON", "true", true},
		{"bool 0", ArgumentSpec{Type: TypeBool}, "0", "false", true},
		{"bool disable", ArgumentSpec{Type: TypeBool}, "disable", "false", true},
		{"bool garbage", ArgumentSpec{Type: TypeBool}, "maybe", "", false},
		{"enum case-fold", ArgumentSpec{Type: TypeEnum, EnumValues: []string{"quick", "deep"}}, "QUICK", "quick", true},
		{"enum outside set", ArgumentSpec{Type: TypeEnum, EnumValues: []string{"quick", "deep"}}, "full", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, valid := tt.spec.Validate(tt.raw)
			if got != tt.want || valid != tt.valid {
				t.Errorf("Validate(%q) = (%q, %v), want (%q, %v)", tt.raw, got, valid, tt.want, tt.valid)
			}
		})
	}
}

func TestCompilePrimary(t *testing.T) {
	re, err := compilePrimary("troubleshoot {issue}")
	if err != nil {
		t.Fatalf("compilePrimary: %v", err)
	}

	m := re.FindStringSubmatch("Troubleshoot login error")
	if m == nil {
		t.Fatal("expected case-insensitive match")
	}
	idx := re.SubexpIndex("issue")
	if idx < 0 || m[idx] != "login error" {
		t.Errorf("captured issue = %q, want %q", m[idx], "login error")
	}

	if re.MatchString("please troubleshoot login error") {
		t.Error("template must be anchored at the start")
	}
	if re.MatchString("troubleshoot") {
		t.Error("placeholder requires at least one character")
	}
}

func TestMatchPrimaryFirstWins(t *testing.T) {
	skill := mustParse(t, `---
name: deploy
intents:
  primary:
    - "deploy {target}"
    - "ship {target}"
---
`)
	i, groups, ok := skill.MatchPrimary("ship production")
	if !ok || i != 1 {
		t.Fatalf("MatchPrimary = (%d, %v), want template 1", i, ok)
	}
	if groups["target"] != "production" {
		t.Errorf("target = %q, want %q", groups["target"], "production")
	}
}

func TestDeriveCapabilities(t *testing.T) {
	tests := []struct {
		name        string
		skillName   string
		keywords    []string
		destructive bool
		modifies    bool
	}{
		{"cleanup is destructive", "cleanup", nil, true, false},
		{"keyword purge", "tidy", []string{"purge"}, true, false},
		{"generate modifies", "scaffold", []string{"generate"}, false, true},
		{"both", "reset-build", nil, true, true},
		{"neither", "analyze", []string{"inspect"}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caps := deriveCapabilities(tt.skillName, tt.keywords)
			if caps.Destructive != tt.destructive || caps.ModifiesFiles != tt.modifies {
				t.Errorf("deriveCapabilities(%q, %v) = %+v, want destructive=%v modifies=%v",
					tt.skillName, tt.keywords, caps, tt.destructive, tt.modifies)
			}
		})
	}
}

func TestFormatCommand(t *testing.T) {
	tests := []struct {
		name  string
		skill string
		args  map[string]string
		want  string
	}{
		{"no args", "analyze", nil, "/analyze"},
		{"plain value", "cleanup", map[string]string{"target": "./tmp"}, "/cleanup --target ./tmp"},
		{"bool true bare", "deploy", map[string]string{"force": "true"}, "/deploy --force"},
		{"quoted spaces", "commit", map[string]string{"message": "fix the bug"}, `/commit --message "fix the bug"`},
		{"sorted flags", "run", map[string]string{"b": "2", "a": "1"}, "/run --a 1 --b 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatCommand(tt.skill, tt.args)
			if got != tt.want {
				t.Errorf("FormatCommand = %q, want %q", got, tt.want)
			}
		})
	}
}

// mustParse parses an inline SKILL.md document or fails the test.
func mustParse(t *testing.T, doc string) *Skill {
	t.Helper()
	skill, err := ParseSkill([]byte(doc))
	if err != nil {
		t.Fatalf("ParseSkill: %v", err)
	}
	return skill
}
