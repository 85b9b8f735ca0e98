package prompts

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"text/template"
)

// Spec is the declaration format. System and User may be Go templates over Input.
type Spec struct {
	Name       PromptName
	Version    int
	System     string
	User       string
	Validators []Validator
}

type Template struct {
	Name     PromptName
	Version  int
	System   func(Input) string
	User     func(Input) string
	Validate Validator
}

// Prompt is a rendered prompt. User is empty for conversational prompts whose user turns come from
// the caller's history.
type Prompt struct {
	Name    string
	Version int
	System  string
	User    string
}

func (p Prompt) Fingerprint() string {
	h := sha256.Sum256([]byte(
		strings.TrimSpace(p.Name) + "|" +
			strconv.Itoa(p.Version) + "|" +
			strings.TrimSpace(p.System) + "|" +
			strings.TrimSpace(p.User),
	))
	return hex.EncodeToString(h[:])
}

var (
	mu       sync.RWMutex
	registry = map[PromptName]Template{}
)

// MakeTemplate compiles a Spec into a Template.
func MakeTemplate(s Spec) (Template, error) {
	if strings.TrimSpace(string(s.Name)) == "" {
		return Template{}, fmt.Errorf("missing prompt name")
	}
	if s.Version <= 0 {
		return Template{}, fmt.Errorf("invalid version for %s", s.Name)
	}
	sysT, err := template.New("system").Option("missingkey=zero").Parse(s.System)
	if err != nil {
		return Template{}, fmt.Errorf("%s system template parse: %w", s.Name, err)
	}
	userT, err := template.New("user").Option("missingkey=zero").Parse(s.User)
	if err != nil {
		return Template{}, fmt.Errorf("%s user template parse: %w", s.Name, err)
	}
	render := func(t *template.Template, in Input) string {
		var b bytes.Buffer
		_ = t.Execute(&b, in)
		return strings.TrimSpace(b.String())
	}
	validators := s.Validators
	return Template{
		Name:    s.Name,
		Version: s.Version,
		System:  func(in Input) string { return render(sysT, in) },
		User:    func(in Input) string { return render(userT, in) },
		Validate: func(in Input) error {
			for _, v := range validators {
				if v == nil {
					continue
				}
				if err := v(in); err != nil {
					return err
				}
			}
			return nil
		},
	}, nil
}

// RegisterSpec compiles and registers s; a malformed built-in prompt is a programming error.
func RegisterSpec(s Spec) {
	t, err := MakeTemplate(s)
	if err != nil {
		panic(err)
	}
	mu.Lock()
	registry[t.Name] = t
	mu.Unlock()
}

// Build renders the named prompt for in.
func Build(name PromptName, in Input) (Prompt, error) {
	mu.RLock()
	t, ok := registry[name]
	mu.RUnlock()
	if !ok {
		return Prompt{}, fmt.Errorf("unknown prompt: %s", string(name))
	}
	if t.Validate != nil {
		if err := t.Validate(in); err != nil {
			return Prompt{}, fmt.Errorf("%s: %w", string(name), err)
		}
	}
	return Prompt{
		Name:    string(t.Name),
		Version: t.Version,
		System:  t.System(in),
		User:    t.User(in),
	}, nil
}

// MustBuild is Build for prompts whose inputs are validated by the caller.
func MustBuild(name PromptName, in Input) Prompt {
	p, err := Build(name, in)
	if err != nil {
		panic(err)
	}
	return p
}
