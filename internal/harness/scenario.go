package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/PrimaryFunction/Arkos/internal/proxy"
	"github.com/PrimaryFunction/Arkos/internal/testutil"
)

// Scenario is a scripted sequence of proxy and XP operations.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario shows.
	Description string `yaml:"description"`

	// Curve overrides the default XP progression.
	Curve *CurveSpec `yaml:"curve,omitempty"`

	// Channels declares sub-channels. Unlisted channels are top-level.
	Channels []ChannelSpec `yaml:"channels,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions are checked after the last step.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// CurveSpec sets the XP tunables.
type CurveSpec struct {
	CharsPerPoint int64 `yaml:"chars_per_point"`
	LevelBase     int64 `yaml:"level_base"`
}

// ChannelSpec makes ID a sub-channel of Parent.
type ChannelSpec struct {
	ID     string `yaml:"id"`
	Parent string `yaml:"parent"`
}

// Step operations.
const (
	OpCreate = "create"
	OpGrant  = "grant"
	OpRelay  = "relay"
	OpDelete = "delete"
	OpList   = "list"
	OpAccess = "access"
	OpXP     = "xp"
	OpFail   = "fail"
)

// Step is one operation. Which fields apply depends on Op:
//
//	create: user, key, name, avatar
//	grant:  user (grantor), key, grantee
//	relay:  user, key, channel, message_id, text
//	delete: key
//	list:   user
//	access: key
//	xp:     user
//	fail:   call (platform op), error ("" clears the failure)
type Step struct {
	Op        string `yaml:"op"`
	User      string `yaml:"user,omitempty"`
	Key       string `yaml:"key,omitempty"`
	Name      string `yaml:"name,omitempty"`
	Avatar    string `yaml:"avatar,omitempty"`
	Grantee   string `yaml:"grantee,omitempty"`
	Channel   string `yaml:"channel,omitempty"`
	MessageID string `yaml:"message_id,omitempty"`
	Text      string `yaml:"text,omitempty"`
	Call      string `yaml:"call,omitempty"`
	Error     string `yaml:"error,omitempty"`

	// Expect is the required outcome: "OK" (default) or an error code
	// such as UNAUTHORIZED.
	Expect string `yaml:"expect,omitempty"`
}

// Assertion checks final state.
type Assertion struct {
	// Type selects the check:
	//   - "xp": user's record equals xp and level
	//   - "grantees": key's holders equal users
	//   - "active_bindings": count bindings still provisioned on channel
	//     ("" for any channel)
	//   - "call_count": the platform saw call exactly count times
	Type string `yaml:"type"`

	User    string   `yaml:"user,omitempty"`
	XP      *int64   `yaml:"xp,omitempty"`
	Level   *int64   `yaml:"level,omitempty"`
	Key     string   `yaml:"key,omitempty"`
	Users   []string `yaml:"users,omitempty"`
	Channel string   `yaml:"channel,omitempty"`
	Call    string   `yaml:"call,omitempty"`
	Count   int      `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertXP             = "xp"
	AssertGrantees       = "grantees"
	AssertActiveBindings = "active_bindings"
	AssertCallCount      = "call_count"
)

var knownOutcomes = map[string]bool{
	OutcomeOK:                          true,
	string(proxy.ErrCodeDuplicateKey):   true,
	string(proxy.ErrCodeProxyNotFound):  true,
	string(proxy.ErrCodeUnauthorized):   true,
	string(proxy.ErrCodeInvalidInput):   true,
	string(proxy.ErrCodeInfrastructure): true,
	string(proxy.ErrCodeStore):          true,
}

var knownCalls = map[string]bool{
	testutil.OpParent:    true,
	testutil.OpProvision: true,
	testutil.OpSend:      true,
	testutil.OpRelease:   true,
	testutil.OpDelete:    true,
	testutil.OpNotify:    true,
}

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	var errs []error
	if s.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if len(s.Steps) == 0 {
		errs = append(errs, errors.New("at least one step is required"))
	}
	if s.Curve != nil && (s.Curve.CharsPerPoint < 1 || s.Curve.LevelBase < 1) {
		errs = append(errs, errors.New("curve values must be >= 1"))
	}
	for i, ch := range s.Channels {
		if ch.ID == "" || ch.Parent == "" {
			errs = append(errs, fmt.Errorf("channels[%d]: id and parent are required", i))
		}
	}
	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			errs = append(errs, fmt.Errorf("steps[%d]: %w", i, err))
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			errs = append(errs, fmt.Errorf("assertions[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func validateStep(step Step) error {
	if step.Expect != "" && !knownOutcomes[step.Expect] {
		return fmt.Errorf("unknown expected outcome %q", step.Expect)
	}

	var missing []string
	need := func(field, value string) {
		if value == "" {
			missing = append(missing, field)
		}
	}
	switch step.Op {
	case OpCreate:
		need("user", step.User)
		need("key", step.Key)
	case OpGrant:
		need("user", step.User)
		need("key", step.Key)
	case OpRelay:
		need("user", step.User)
		need("key", step.Key)
		need("channel", step.Channel)
	case OpDelete, OpAccess:
		need("key", step.Key)
	case OpList, OpXP:
		need("user", step.User)
	case OpFail:
		if !knownCalls[step.Call] {
			return fmt.Errorf("fail: unknown platform call %q", step.Call)
		}
	case "":
		return errors.New("op is required")
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: missing %v", step.Op, missing)
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertXP:
		if a.User == "" || a.XP == nil || a.Level == nil {
			return errors.New("xp: user, xp and level are required")
		}
	case AssertGrantees:
		if a.Key == "" {
			return errors.New("grantees: key is required")
		}
	case AssertActiveBindings:
	case AssertCallCount:
		if !knownCalls[a.Call] {
			return fmt.Errorf("call_count: unknown platform call %q", a.Call)
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
