package testutil

import (
	"context"
	"encoding/json"
	"testing"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/learnloop-backend/internal/domain/learning"
)

func SamplePlan(n int) learning.Plan {
	names := []string{"Variables", "Loops", "Functions", "Recursion", "Sorting", "Graphs", "Dynamic programming", "Tries"}
	out := make(learning.Plan, 0, n)
	for i := 0; i < n; i++ {
		name := names[i%len(names)]
		out = append(out, learning.ConceptItem{
			Concept:    name,
			VideoTitle: name + " explained",
			Channel:    "CS Dojo",
			VideoURL:   "https://www.youtube.com/watch?v=abcdefghij" + string(rune('a'+i%26)),
			Reason:     "builds on the previous step",
		})
	}
	return out
}

func JSON(tb testing.TB, v any) datatypes.JSON {
	tb.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		tb.Fatalf("marshal: %v", err)
	}
	return datatypes.JSON(b)
}

func SeedLearningSession(tb testing.TB, ctx context.Context, tx *gorm.DB, plan learning.Plan) *learning.LearningSession {
	tb.Helper()
	row := &learning.LearningSession{
		Subject:   "seeded",
		Plan:      JSON(tb, plan),
		Completed: JSON(tb, []int{}),
	}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		tb.Fatalf("seed learning session: %v", err)
	}
	return row
}
