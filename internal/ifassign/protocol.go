package ifassign

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// The line protocol is the only channel from the mutator back to the
// orchestrator. One line per device outcome, then one summary line:
//
//	ASSIGNED dev=ovpns1 slot=opt5
//	EXISTS dev=ovpns2 slot=opt3
//	SKIPPED dev=ovpns4 reason=no-device
//	SUMMARY new=opt5 existing=opt3
//
// Empty slot lists in the summary are written as "-".

// WriteResult emits the protocol for a run result.
func WriteResult(w io.Writer, r *Result) error {
	for _, o := range r.Outcomes {
		var err error
		switch o.Status {
		case StatusAssigned:
			_, err = fmt.Fprintf(w, "ASSIGNED dev=%s slot=%s\n", o.Device, o.Slot)
		case StatusExists:
			_, err = fmt.Fprintf(w, "EXISTS dev=%s slot=%s\n", o.Device, o.Slot)
		case StatusSkipped:
			_, err = fmt.Fprintf(w, "SKIPPED dev=%s reason=no-device\n", o.Device)
		default:
			err = fmt.Errorf("unknown outcome status %q", o.Status)
		}
		if err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "SUMMARY new=%s existing=%s\n",
		joinOrDash(r.NewSlots), joinOrDash(r.ExistingSlots))
	return err
}

// ParseResult reads the protocol back into a Result. Unknown lines are
// ignored so the mutator may log freely around the protocol lines.
func ParseResult(r io.Reader) (*Result, error) {
	result := &Result{}
	sawSummary := false

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "ASSIGNED":
			kv := parseKV(fields[1:])
			result.Outcomes = append(result.Outcomes, Outcome{Device: kv["dev"], Slot: kv["slot"], Status: StatusAssigned})
		case "EXISTS":
			kv := parseKV(fields[1:])
			result.Outcomes = append(result.Outcomes, Outcome{Device: kv["dev"], Slot: kv["slot"], Status: StatusExists})
		case "SKIPPED":
			kv := parseKV(fields[1:])
			result.Outcomes = append(result.Outcomes, Outcome{Device: kv["dev"], Status: StatusSkipped})
		case "SUMMARY":
			kv := parseKV(fields[1:])
			result.NewSlots = splitOrNil(kv["new"])
			result.ExistingSlots = splitOrNil(kv["existing"])
			sawSummary = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read mutator output: %w", err)
	}
	if !sawSummary {
		return nil, fmt.Errorf("mutator output contained no SUMMARY line")
	}
	return result, nil
}

func parseKV(fields []string) map[string]string {
	kv := make(map[string]string, len(fields))
	for _, f := range fields {
		if k, v, ok := strings.Cut(f, "="); ok {
			kv[k] = v
		}
	}
	return kv
}

func joinOrDash(slots []string) string {
	if len(slots) == 0 {
		return "-"
	}
	return strings.Join(slots, ",")
}

func splitOrNil(s string) []string {
	if s == "" || s == "-" {
		return nil
	}
	return strings.Split(s, ",")
}
