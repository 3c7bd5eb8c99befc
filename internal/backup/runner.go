package backup

import (
	"fmt"

	"github.com/kebairia/tablesnap/internal/config"
)

// Summary aggregates the outcome of a multi-target run for exit-code
// purposes.
type Summary struct {
	Succeeded int
	Failed    int
}

// RunAll backs up every target sequentially and collects the manifests. An
// unknown database kind is a configuration error that aborts the whole run
// before any backup starts; per-target connection and export failures are
// recorded in the target's manifest and do not stop the remaining targets.
//
// Targets are processed strictly one at a time: run directory names are
// time-derived only, so concurrent runs into the same output root could
// collide.
func RunAll(targets []config.Target, opts Options) ([]*Manifest, Summary, error) {
	for _, t := range targets {
		switch t.Kind {
		case config.KindSQLite, config.KindMySQL, config.KindMariaDB:
		default:
			return nil, Summary{}, config.NewConfigError("type",
				fmt.Sprintf("unknown database type %q for %q: use sqlite, mysql, or mariadb", t.Kind, t.Name))
		}
	}

	manifests := make([]*Manifest, 0, len(targets))
	var summary Summary
	for _, target := range targets {
		manifest := Run(target, opts)
		manifests = append(manifests, manifest)
		if manifest.Status == StatusSuccess {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	return manifests, summary, nil
}
