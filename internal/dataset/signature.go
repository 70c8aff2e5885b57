package dataset

import (
	"fmt"

	"github.com/LISSConsulting/LISSTech.Revise/internal/notify"
)

// maxSignatureProbe bounds the custom-pattern search.
const maxSignatureProbe = 1000

// signatureTimeLayout is the timestamp suffix of fallback signatures.
const signatureTimeLayout = "01022006150405"

// GenerateSignature returns a signature no known file (or earlier call)
// uses. With a custom pattern for language it probes pattern1,
// pattern2, ... up to a bound; otherwise, or when the probe is exhausted,
// it falls back to REV_{language}{timestamp}.
func (s *Store) GenerateSignature(language string) string {
	known, err := s.cat.Basenames()
	if err != nil {
		s.logger.Warn("signature probe without catalog", "error", err)
		known = map[string]bool{}
	}
	taken := func(sig string) bool { return known[sig] || s.reserved[sig] }

	if pattern := s.opts.Signatures[language]; pattern != "" {
		for i := 1; i <= maxSignatureProbe; i++ {
			sig := fmt.Sprintf("%s%d", pattern, i)
			if !taken(sig) {
				s.reserved[sig] = true
				return sig
			}
		}
		s.logger.Warn("signature pattern exhausted", "language", language, "pattern", pattern, "probes", maxSignatureProbe)
		s.sink.Notify(fmt.Sprintf("No free signature for pattern %q, using a timestamp", pattern), notify.Warning)
	}

	base := fmt.Sprintf("REV_%s%s", language, s.opts.Now().Format(signatureTimeLayout))
	sig := base
	for i := 2; taken(sig); i++ {
		sig = fmt.Sprintf("%s_%d", base, i)
	}
	s.reserved[sig] = true
	return sig
}
