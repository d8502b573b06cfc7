// Package tower resolves which phase a step shows and animates the transitions between phases.
package tower

import "github.com/DaanHessen/basis-tower/internal/lesson"

// Resolve returns the greatest index whose trigger line has been revealed, or 0 when none has.
func Resolve(phases []lesson.Phase, line int) int {
	idx := 0
	for j, p := range phases {
		if p.TriggerLine <= line {
			idx = j
		}
	}
	return idx
}
