package ifassign

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/google/renameio/v2"

	"github.com/opnsense-tools/opnvpn/internal/alloc"
)

// FailureCode categorizes mutation failures for the invoking side. The
// codes are part of the remote invocation contract and are printed verbatim
// on stderr by cmd/opnvpn-ifassign.
type FailureCode string

const (
	CodeBackupFail         FailureCode = "BACKUP_FAIL"
	CodeXMLParseFail       FailureCode = "XML_PARSE_FAIL"
	CodeNoInterfacesTag    FailureCode = "NO_INTERFACES_TAG"
	CodeXMLSaveFail        FailureCode = "XML_SAVE_FAIL"
	CodeXMLInvalidRollback FailureCode = "XML_INVALID_ROLLBACK"
	CodeRenameFail         FailureCode = "RENAME_FAIL"
)

// Failure wraps an underlying error with its contract code.
type Failure struct {
	Code FailureCode
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Code, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// DefaultDevicePattern matches the OpenVPN server/client devices the
// appliance creates for each VPN instance.
var DefaultDevicePattern = regexp.MustCompile(`^ovpn[cs]\d+$`)

// Config drives one mutation run.
type Config struct {
	// ConfigPath is the live configuration document.
	ConfigPath string

	// BackupDir receives the timestamped pre-mutation copy.
	BackupDir string

	// Pattern selects the devices eligible for assignment. Nil means
	// DefaultDevicePattern.
	Pattern *regexp.Regexp

	// Description is stamped on every newly created assignment.
	Description string

	// Lister enumerates live devices. Nil means SystemLister.
	Lister DeviceLister

	// Now supplies the backup timestamp. Nil means time.Now.
	Now func() time.Time
}

// Outcome is the per-device result of a run.
type Outcome struct {
	Device string
	Slot   string // empty when the device was skipped
	Status Status
}

// Status classifies a device outcome.
type Status string

const (
	StatusAssigned Status = "assigned"
	StatusExists   Status = "exists"
	StatusSkipped  Status = "skipped"
)

// Result aggregates a run. Slot order follows device name order, so output
// is stable across runs.
type Result struct {
	Outcomes      []Outcome
	NewSlots      []string
	ExistingSlots []string
}

// marshalDoc is indirected for fault-injection in tests.
var marshalDoc = serializeDoc

// Run executes the full mutation sequence. On any failure after the backup
// was taken, the live document is restored from the backup before the error
// is reported; the live path is never left in a possibly-corrupt state.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.Pattern == nil {
		cfg.Pattern = DefaultDevicePattern
	}
	if cfg.Lister == nil {
		cfg.Lister = SystemLister{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	// Backup. Nothing else is attempted if this fails.
	live, err := os.ReadFile(cfg.ConfigPath)
	if err != nil {
		return nil, &Failure{Code: CodeBackupFail, Err: err}
	}
	backupPath := filepath.Join(cfg.BackupDir,
		fmt.Sprintf("config-%s.xml.bak", cfg.Now().Format("20060102-150405")))
	if err := os.MkdirAll(cfg.BackupDir, 0o750); err != nil {
		return nil, &Failure{Code: CodeBackupFail, Err: err}
	}
	if err := os.WriteFile(backupPath, live, 0o600); err != nil {
		return nil, &Failure{Code: CodeBackupFail, Err: err}
	}

	// Discover.
	doc, err := parseDoc(live)
	if err != nil {
		return nil, &Failure{Code: CodeXMLParseFail, Err: err}
	}
	interfaces := findChild(doc, "interfaces")
	if interfaces == nil {
		return nil, &Failure{Code: CodeNoInterfacesTag, Err: fmt.Errorf("no interfaces element in %s", cfg.ConfigPath)}
	}

	devices, err := cfg.Lister.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	var matching []string
	for _, dev := range devices {
		if cfg.Pattern.MatchString(dev) {
			matching = append(matching, dev)
		}
	}
	sort.Strings(matching)

	assigned := assignments(interfaces)
	used := usedSlotNumbers(interfaces)

	// Plan.
	result := &Result{}
	for _, dev := range matching {
		present, err := cfg.Lister.Present(ctx, dev)
		if err != nil {
			return nil, fmt.Errorf("query device %s: %w", dev, err)
		}
		if !present {
			result.Outcomes = append(result.Outcomes, Outcome{Device: dev, Status: StatusSkipped})
			continue
		}
		if slot, ok := assigned[dev]; ok {
			result.Outcomes = append(result.Outcomes, Outcome{Device: dev, Slot: slot, Status: StatusExists})
			result.ExistingSlots = append(result.ExistingSlots, slot)
			continue
		}
		n := alloc.NextSlot(used)
		used[n] = true
		slot := fmt.Sprintf("opt%d", n)
		addSlot(interfaces, slot, dev, cfg.Description)
		result.Outcomes = append(result.Outcomes, Outcome{Device: dev, Slot: slot, Status: StatusAssigned})
		result.NewSlots = append(result.NewSlots, slot)
	}

	if len(result.NewSlots) == 0 {
		// Nothing planned; the document is untouched and needs no commit.
		return result, nil
	}

	// Write the candidate, never the live path.
	candidate := cfg.ConfigPath + ".candidate"
	data, err := marshalDoc(doc)
	if err != nil {
		return nil, rollback(cfg.ConfigPath, backupPath, &Failure{Code: CodeXMLSaveFail, Err: err})
	}
	if err := renameio.WriteFile(candidate, data, 0o600); err != nil {
		return nil, rollback(cfg.ConfigPath, backupPath, &Failure{Code: CodeXMLSaveFail, Err: err})
	}

	// Validate the candidate by re-parsing it.
	if err := validateCandidate(candidate); err != nil {
		_ = os.Remove(candidate)
		return nil, rollback(cfg.ConfigPath, backupPath, &Failure{Code: CodeXMLInvalidRollback, Err: err})
	}

	// Commit atomically.
	if err := os.Rename(candidate, cfg.ConfigPath); err != nil {
		_ = os.Remove(candidate)
		return nil, rollback(cfg.ConfigPath, backupPath, &Failure{Code: CodeRenameFail, Err: err})
	}

	return result, nil
}

func validateCandidate(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	doc, err := parseDoc(data)
	if err != nil {
		return err
	}
	if findChild(doc, "interfaces") == nil {
		return fmt.Errorf("candidate lost its interfaces element")
	}
	return nil
}

// rollback restores the live path from the backup. The original failure is
// always reported; a rollback failure is attached to it.
func rollback(livePath, backupPath string, failure *Failure) error {
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return fmt.Errorf("%w (rollback failed: %v)", failure, err)
	}
	if err := renameio.WriteFile(livePath, data, 0o600); err != nil {
		return fmt.Errorf("%w (rollback failed: %v)", failure, err)
	}
	return failure
}
