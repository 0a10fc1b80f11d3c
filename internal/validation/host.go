// Package validation checks that a media host speaks a protocol revision
// this build understands and turns host failures into user-facing advice.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MinHostMajor is the oldest host release line with the playback events.
const MinHostMajor = 1

// SupportedRPC is the protocol revision spoken by voiceplay.
const SupportedRPC = 1

var semver = regexp.MustCompile(`^v?(\d+)\.(\d+)\.(\d+)`)

// Result is the outcome of a compatibility check.
type Result struct {
	OK      bool
	Message string
	Issues  []string
	Fixes   []string
}

func (r *Result) fail(issue, fix string) {
	r.OK = false
	r.Issues = append(r.Issues, issue)
	if fix != "" {
		r.Fixes = append(r.Fixes, fix)
	}
}

// ValidateHostVersion checks a semantic version string such as "1.2.0".
func ValidateHostVersion(version string) *Result {
	r := &Result{OK: true}
	m := semver.FindStringSubmatch(strings.TrimSpace(version))
	if m == nil {
		r.fail(fmt.Sprintf("could not parse host version %q", version), "Upgrade the media host to a tagged release")
		r.Message = "unknown host version"
		return r
	}
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	if major < MinHostMajor {
		r.fail(fmt.Sprintf("host %d.%d is too old (requires %d.0+)", major, minor, MinHostMajor),
			fmt.Sprintf("Upgrade the media host to %d.0 or later", MinHostMajor))
		r.Message = fmt.Sprintf("host %d.%d is incompatible", major, minor)
		return r
	}
	r.Message = fmt.Sprintf("host %d.%d is compatible", major, minor)
	return r
}

// ValidateRPC checks the protocol revision announced in Hello.
func ValidateRPC(rpc int) *Result {
	r := &Result{OK: true}
	if rpc != SupportedRPC {
		r.fail(fmt.Sprintf("host speaks rpc %d, voiceplay speaks %d", rpc, SupportedRPC),
			"Run a media host built for this voiceplay release")
		r.Message = fmt.Sprintf("rpc %d is unsupported", rpc)
		return r
	}
	r.Message = fmt.Sprintf("rpc %d", rpc)
	return r
}

// CheckHost combines the version and protocol checks.
func CheckHost(version string, rpc int) *Result {
	r := &Result{OK: true}
	var msgs []string
	for _, sub := range []*Result{ValidateHostVersion(version), ValidateRPC(rpc)} {
		msgs = append(msgs, sub.Message)
		if !sub.OK {
			r.OK = false
			r.Issues = append(r.Issues, sub.Issues...)
			r.Fixes = append(r.Fixes, sub.Fixes...)
		}
	}
	status := "passed"
	if !r.OK {
		status = "FAILED"
	}
	r.Message = fmt.Sprintf("media host check %s: %s", status, strings.Join(msgs, " | "))
	return r
}

// SuggestedFixes returns troubleshooting lines for a failed host request.
func SuggestedFixes(code int, msg string) []string {
	switch code {
	case 204:
		return []string{
			"The media host rejected the request type (code 204).",
			"The host is probably older than this voiceplay build; upgrade it.",
		}
	case 400:
		return []string{
			fmt.Sprintf("The media host rejected a value: %s", msg),
			"Volume must be 0-100 and playback rate 0.5-8.",
		}
	case 600:
		return []string{
			"No audio is loaded in the media host.",
			"Load a file first: voiceplay-ctl load-audio <file>",
		}
	}
	if strings.Contains(msg, "not connected") || strings.Contains(msg, "dialing") {
		return []string{
			"Cannot reach the media host.",
			"Check that it is running and that host_url in config.yaml points at it.",
		}
	}
	return []string{fmt.Sprintf("Error: %s", msg), "See /tmp/voiceplay.err.log for details."}
}
