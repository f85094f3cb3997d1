package console

import "mtx-console/internal/mediamtx"

// Merge left-joins live state onto declared configs by name. Config order is
// kept, catchAll is dropped and live paths without a config are only counted.
// The result depends on nothing but its inputs.
func Merge(configs []mediamtx.PathConfig, live []mediamtx.LivePath, catchAll string) (paths []MergedPathStatus, unmatched int) {
	byName := make(map[string]mediamtx.LivePath, len(live))
	for _, lp := range live {
		if _, dup := byName[lp.Name]; !dup {
			byName[lp.Name] = lp
		}
	}

	paths = make([]MergedPathStatus, 0, len(configs))
	seen := make(map[string]struct{}, len(configs))
	for _, cfg := range configs {
		if cfg.Name == catchAll {
			continue
		}
		if _, dup := seen[cfg.Name]; dup {
			continue
		}
		seen[cfg.Name] = struct{}{}

		st := MergedPathStatus{Name: cfg.Name, Config: cfg}
		if lp, ok := byName[cfg.Name]; ok {
			st.IsLive = lp.Ready
			if lp.Source != nil {
				st.SourceType = lp.Source.Type
			}
			st.ReaderCount = len(lp.Readers)
			st.BytesReceived = lp.BytesReceived
			st.BytesSent = lp.BytesSent
		}
		paths = append(paths, st)
	}

	for name := range byName {
		if _, ok := seen[name]; !ok && name != catchAll {
			unmatched++
		}
	}
	return paths, unmatched
}

// Summarize computes the dashboard counters over merged entries.
func Summarize(paths []MergedPathStatus) Summary {
	s := Summary{TotalPaths: len(paths)}
	for _, p := range paths {
		if p.IsLive {
			s.ActivePaths++
		}
		s.TotalReaders += p.ReaderCount
	}
	return s
}
