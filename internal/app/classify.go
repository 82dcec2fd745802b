package app

import (
	"fmt"
	"strings"
	"time"
)

// Verdict is the classification outcome for one channel.
type Verdict string

const (
	VerdictKeep                Verdict = "keep"
	VerdictArchiveByDomain     Verdict = "archive_by_domain"
	VerdictArchiveByInactivity Verdict = "archive_by_inactivity"
)

// ShouldArchive reports whether the verdict calls for the archive action.
func (v Verdict) ShouldArchive() bool {
	return v == VerdictArchiveByDomain || v == VerdictArchiveByInactivity
}

// Observation is the already-resolved channel state Classify decides on.
// AgeKnown is false when no usable last-activity timestamp exists, Domains
// holds the distinct resolved member domains.
type Observation struct {
	Archived bool
	Age      time.Duration
	AgeKnown bool
	Domains  []string
}

// Classification is one verdict together with the values it was based on.
type Classification struct {
	Verdict  Verdict
	Reason   string
	Age      time.Duration
	AgeKnown bool
	Domains  []string
}

// Classify decides the fate of one channel. First match wins: already
// archived, orphan domains, inactivity, keep. The domain rule never matches
// an empty domain set and the inactivity rule never matches an unknown age,
// so neither an empty nor an unreadable channel archives by accident.
// Classify performs no I/O.
func Classify(obs Observation, pol Policy) Classification {
	cls := Classification{
		Verdict:  VerdictKeep,
		Age:      obs.Age,
		AgeKnown: obs.AgeKnown,
		Domains:  obs.Domains,
	}

	if obs.Archived {
		cls.Reason = "already archived"
		return cls
	}

	if len(obs.Domains) > 0 && pol.ContainsAll(obs.Domains) {
		cls.Verdict = VerdictArchiveByDomain
		cls.Reason = fmt.Sprintf("all member domains in %s", strings.Join(obs.Domains, ","))
		return cls
	}

	if pol.Threshold > 0 && obs.AgeKnown && obs.Age > pol.Threshold {
		cls.Verdict = VerdictArchiveByInactivity
		cls.Reason = fmt.Sprintf("no activity for %d days", int(obs.Age.Hours()/24))
		return cls
	}

	if pol.Threshold > 0 && !obs.AgeKnown {
		cls.Reason = "activity unknown"
		return cls
	}

	cls.Reason = "no rule matched"
	return cls
}
