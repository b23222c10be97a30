package schema

import "db-extend/internal/logging"

var logger = logging.NewLogger()

// SortTablesByFKCount sorts tables by dependency order.
// It handles circular dependencies by using a scoring system.
func SortTablesByFKCount(tables []*Table) []*Table {
	var sorted []*Table
	processed := make(map[string]bool)

	// Keep looping until all tables are processed
	for len(sorted) < len(tables) {
		added := false

		// Pass 1: Add tables whose dependencies are fully satisfied
		for _, t := range tables {
			if processed[t.Name] {
				continue
			}

			allDepsProcessed := true
			for _, depName := range t.Dependencies {
				if !processed[depName] {
					allDepsProcessed = false
					break
				}
			}

			if allDepsProcessed {
				sorted = append(sorted, t)
				processed[t.Name] = true
				added = true
			}
		}

		if added {
			continue
		}

		// Pass 2: No table added means a cycle. Break it using heuristic score.
		bestTable, bestScore := cycleBreaker(tables, processed)
		if bestTable == nil {
			logger.Error().Int("remaining", len(tables)-len(sorted)).Msg("remaining tables cannot be sorted")
			break
		}
		sorted = append(sorted, bestTable)
		processed[bestTable.Name] = true
		logger.Debug().Str("table", bestTable.Name).Int("score", bestScore).Msg("breaking circular dependency")
	}

	return sorted
}

// cycleBreaker scores the unprocessed tables:
// -100 per unprocessed dependency, +500 when the table sits on a two-table cycle.
// Ties go to the alphabetically last name so the result is deterministic.
func cycleBreaker(tables []*Table, processed map[string]bool) (*Table, int) {
	var bestTable *Table
	bestScore := -999999

	byName := make(map[string]*Table, len(tables))
	for _, t := range tables {
		byName[t.Name] = t
	}

	for _, t := range tables {
		if processed[t.Name] {
			continue
		}

		score := 0
		isCircular := false
		for _, dep := range t.Dependencies {
			if processed[dep] {
				continue
			}
			score -= 100
			if cand, ok := byName[dep]; ok && contains(cand.Dependencies, t.Name) {
				isCircular = true
			}
		}
		if isCircular {
			score += 500
		}

		if score > bestScore || (score == bestScore && (bestTable == nil || t.Name > bestTable.Name)) {
			bestScore = score
			bestTable = t
		}
	}
	return bestTable, bestScore
}
