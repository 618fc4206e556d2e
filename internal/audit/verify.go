package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// VerifyResult holds the outcome of a hash chain verification.
type VerifyResult struct {
	Valid     bool   `json:"valid"`
	Lines     int    `json:"lines"`
	TailHash  string `json:"tail_hash,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorLine int    `json:"error_line,omitempty"`
}

// brokenLink stops the scan at the first bad line.
type brokenLink struct {
	line int
	msg  string
}

func (b *brokenLink) Error() string { return b.msg }

// Verify reads a JSONL audit log and validates the hash chain and the
// decision field of every entry. It reports the first broken link.
func Verify(path string) VerifyResult {
	f, err := os.Open(path)
	if err != nil {
		return VerifyResult{Error: fmt.Sprintf("open: %v", err)}
	}
	defer f.Close()

	expected := GenesisHash
	lines := 0
	err = eachLine(f, func(n int, line []byte) error {
		var entry AuditEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return &brokenLink{line: n, msg: fmt.Sprintf("parse error: %v", err)}
		}
		if entry.PrevHash != expected {
			if expected == GenesisHash {
				return &brokenLink{line: n, msg: fmt.Sprintf("first entry prev_hash is %q, expected genesis hash", entry.PrevHash)}
			}
			return &brokenLink{line: n, msg: fmt.Sprintf("hash mismatch: expected %s, got %s", expected, entry.PrevHash)}
		}
		if entry.Decision != DecisionPass && entry.Decision != DecisionDeny {
			return &brokenLink{line: n, msg: fmt.Sprintf("unknown decision %q", entry.Decision)}
		}
		expected = HashLine(line)
		lines++
		return nil
	})

	var bl *brokenLink
	if errors.As(err, &bl) {
		return VerifyResult{Lines: lines, Error: bl.msg, ErrorLine: bl.line}
	}
	if err != nil {
		return VerifyResult{Lines: lines, Error: fmt.Sprintf("scan: %v", err)}
	}

	res := VerifyResult{Valid: true, Lines: lines}
	if lines > 0 {
		res.TailHash = expected
	}
	return res
}
