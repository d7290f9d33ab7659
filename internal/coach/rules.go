package coach

// StreakAchievement celebrates a practice streak that reached the target.
func StreakAchievement(ctx *ReportContext) []Note {
	if ctx.Analysis.CurrentStreak < ctx.Goals.StreakTarget {
		return nil
	}
	return []Note{{
		Kind:     NoteAchievement,
		Priority: PriorityHigh,
		Message:  msg(ReportStreakAchievement, "days", itoa(ctx.Analysis.CurrentStreak)),
	}}
}

// GrowthAchievement celebrates a week-over-week score gain above the
// achievement threshold.
func GrowthAchievement(ctx *ReportContext) []Note {
	g := ctx.Analysis.GrowthRate
	if g == nil || *g <= ctx.Goals.AchievementGrowth {
		return nil
	}
	return []Note{{
		Kind:     NoteAchievement,
		Priority: PriorityMedium,
		Message:  msg(ReportGrowthAchievement, "rate", itoa(*g)),
	}}
}

// PracticeFrequency asks for more sessions when the last week fell short of
// the weekly target.
func PracticeFrequency(ctx *ReportContext) []Note {
	if ctx.Analysis.Last7Count >= ctx.Goals.WeeklySessions {
		return nil
	}
	return []Note{{
		Kind:     NoteImprovement,
		Priority: PriorityHigh,
		Message: msg(ReportPracticeMore,
			"count", itoa(ctx.Analysis.Last7Count),
			"target", itoa(ctx.Goals.WeeklySessions),
		),
	}}
}
