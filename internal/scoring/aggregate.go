package scoring

import "strings"

// Aggregate merges chunk results in chunk order: the highest score wins,
// skills and summaries are de-duplicated in first-seen order, and identity
// comes from the first result.
func Aggregate(results []ChunkResult) (ChunkResult, error) {
	if len(results) == 0 {
		return ChunkResult{}, ErrNoResults
	}

	out := ChunkResult{
		MatchPercentage: results[0].MatchPercentage,
		MatchedSkills:   []string{},
		FirstName:       results[0].FirstName,
		LastName:        results[0].LastName,
	}
	seenSkill := make(map[string]struct{})
	seenSummary := make(map[string]struct{})
	var summaries []string

	for _, r := range results {
		out.MatchPercentage = max(out.MatchPercentage, r.MatchPercentage)
		for _, s := range r.MatchedSkills {
			if _, ok := seenSkill[s]; ok {
				continue
			}
			seenSkill[s] = struct{}{}
			out.MatchedSkills = append(out.MatchedSkills, s)
		}
		if _, ok := seenSummary[r.Summary]; ok || r.Summary == "" {
			continue
		}
		seenSummary[r.Summary] = struct{}{}
		summaries = append(summaries, r.Summary)
	}
	out.Summary = strings.Join(summaries, " ")
	return out, nil
}
