package mediamtx

import "strings"

// CreatePayload returns the config that is actually sent on create. Only fields
// the caller set to a non-default value survive: the control plane treats an
// explicit default differently from an absent field for some options.
func CreatePayload(cfg PathConfig) PathConfig {
	out := PathConfig{
		Name:                       cfg.Name,
		Source:                     cfg.Source,
		SourceFingerprint:          strings.TrimSpace(cfg.SourceFingerprint),
		SourceOnDemand:             cfg.SourceOnDemand,
		SourceOnDemandStartTimeout: cfg.SourceOnDemandStartTimeout,
		SourceOnDemandCloseAfter:   cfg.SourceOnDemandCloseAfter,
		Record:                     cfg.Record,
		OverridePublisher:          cfg.OverridePublisher,
	}
	// Zero means unlimited and is left to the server default.
	if cfg.MaxReaders > 0 {
		out.MaxReaders = cfg.MaxReaders
	}
	if cfg.Recording() {
		out.RecordPath = cfg.RecordPath
		out.RecordFormat = cfg.RecordFormat
		out.RecordPartDuration = cfg.RecordPartDuration
		out.RecordSegmentDuration = cfg.RecordSegmentDuration
		out.RecordDeleteAfter = cfg.RecordDeleteAfter
	}
	return out
}

// PatchPayload returns the patch that is actually sent on update. Recording
// sub-fields are dropped when the same patch turns recording off.
func PatchPayload(p PathConfigPatch) PathConfigPatch {
	out := p
	if p.Record != nil && !*p.Record {
		out.RecordPath = nil
		out.RecordFormat = nil
		out.RecordPartDuration = nil
		out.RecordSegmentDuration = nil
		out.RecordDeleteAfter = nil
	}
	return out
}

// ValidateCreate checks the fields the control plane cannot default.
func ValidateCreate(cfg PathConfig) error {
	switch {
	case strings.TrimSpace(cfg.Name) == "":
		return &Error{Kind: InvalidConfig, Op: "create path config", Message: "path name is required"}
	case strings.TrimSpace(cfg.Source) == "":
		return &Error{Kind: InvalidConfig, Op: "create path config", Message: "source is required"}
	case cfg.MaxReaders < 0:
		return &Error{Kind: InvalidConfig, Op: "create path config", Message: "maxReaders must not be negative"}
	}
	return nil
}
