package learning

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/learnloop-backend/internal/data/repos/testutil"
	types "github.com/yungbote/learnloop-backend/internal/domain/learning"
	"github.com/yungbote/learnloop-backend/internal/pkg/dbctx"
)

func TestPlanDraftRepo(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Of(context.Background())
	repo := NewPlanDraftRepo(db, testutil.Logger(t))

	plan := testutil.SamplePlan(4)
	row := &types.PlanDraft{
		Subject:      "recursion",
		State:        "editing",
		Plan:         testutil.JSON(t, plan),
		History:      testutil.JSON(t, []types.ConversationTurn{{Role: types.RoleUser, Content: "recursion"}}),
		EditingIndex: -1,
	}
	if _, err := repo.Create(dbc, row); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if row.ID == uuid.Nil {
		t.Fatalf("expected generated id")
	}

	got, err := repo.GetByID(dbc, row.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: got=%v err=%v", got, err)
	}
	var decoded types.Plan
	if err := json.Unmarshal(got.Plan, &decoded); err != nil || len(decoded) != 4 || decoded[2].Concept != plan[2].Concept {
		t.Fatalf("plan round trip: %v %+v", err, decoded)
	}

	got.State = "field_editing"
	got.EditingIndex = 0
	if err := repo.Save(dbc, got); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if rows, err := repo.ListByStates(dbc, []string{"field_editing"}); err != nil || len(rows) != 1 {
		t.Fatalf("ListByStates: err=%v len=%d", err, len(rows))
	}

	if err := repo.SoftDeleteByID(dbc, row.ID); err != nil {
		t.Fatalf("SoftDeleteByID: %v", err)
	}
	if got, err := repo.GetByID(dbc, row.ID); err != nil || got != nil {
		t.Fatalf("after delete: got=%v err=%v", got, err)
	}
	if got, err := repo.GetByID(dbc, uuid.New()); err != nil || got != nil {
		t.Fatalf("missing id: got=%v err=%v", got, err)
	}
}

func TestLearningSessionRepo(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Of(ctx)
	repo := NewLearningSessionRepo(db, testutil.Logger(t))

	seeded := testutil.SeedLearningSession(t, ctx, db, testutil.SamplePlan(3))

	if err := repo.UpdateFields(dbc, seeded.ID, map[string]interface{}{
		"current_index": 2,
		"completed":     testutil.JSON(t, []int{0, 2}),
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	got, err := repo.GetByID(dbc, seeded.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: got=%v err=%v", got, err)
	}
	if got.CurrentIndex != 2 {
		t.Fatalf("current_index=%d", got.CurrentIndex)
	}
	var completed []int
	if err := json.Unmarshal(got.Completed, &completed); err != nil || len(completed) != 2 {
		t.Fatalf("completed=%v err=%v", completed, err)
	}

	if err := repo.SoftDeleteByID(dbc, seeded.ID); err != nil {
		t.Fatalf("SoftDeleteByID: %v", err)
	}
	if got, err := repo.GetByID(dbc, seeded.ID); err != nil || got != nil {
		t.Fatalf("after delete: got=%v err=%v", got, err)
	}
}
