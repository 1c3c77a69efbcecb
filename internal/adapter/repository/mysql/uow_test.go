package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	"approvalflow/internal/domain/uow"
	workflowDomain "approvalflow/internal/domain/workflow"

	"gorm.io/gorm"
)

func TestGormUoW_WithinTx_Commit(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	guow := NewGormUoW(db)
	instRepo := NewInstanceRepository(db)
	delRepo := NewDelegationRepository(db)

	now := time.Now().UTC()
	in := makeInstance("t-100", "LEAVE_REQUEST", "lr-1", workflowDomain.InstanceInProgress)
	del := makeDelegation("t-100", "u-alice", "u-bob", now, now.Add(time.Hour))

	err := guow.WithinTx(ctx, func(r uow.Repos) error {
		if err := r.Instances.Create(ctx, in); err != nil {
			return err
		}
		return r.Delegations.Create(ctx, del)
	})
	if err != nil {
		t.Fatalf("WithinTx commit err: %v", err)
	}

	if _, err := instRepo.GetByInstanceID(ctx, "t-100", in.InstanceID); err != nil {
		t.Fatalf("instance not visible after commit: %v", err)
	}
	if _, err := delRepo.GetByDelegationID(ctx, "t-100", del.DelegationID); err != nil {
		t.Fatalf("delegation not visible after commit: %v", err)
	}
}

func TestGormUoW_WithinTx_Rollback(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	guow := NewGormUoW(db)
	instRepo := NewInstanceRepository(db)
	delRepo := NewDelegationRepository(db)

	now := time.Now().UTC()
	in := makeInstance("t-100", "LEAVE_REQUEST", "lr-rb", workflowDomain.InstanceInProgress)
	del := makeDelegation("t-100", "u-alice", "u-bob", now, now.Add(time.Hour))
	sentinel := errors.New("boom")

	_ = guow.WithinTx(ctx, func(r uow.Repos) error {
		if err := r.Instances.Create(ctx, in); err != nil {
			return err
		}
		if err := r.Delegations.Create(ctx, del); err != nil {
			return err
		}
		return sentinel // force rollback
	})

	if _, err := instRepo.GetByInstanceID(ctx, "t-100", in.InstanceID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected instance absent after rollback, got %v", err)
	}
	if _, err := delRepo.GetByDelegationID(ctx, "t-100", del.DelegationID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected delegation absent after rollback, got %v", err)
	}
}

func TestGormUoW_WithinInstanceTx_Commit(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	guow := NewGormUoW(db)
	instRepo := NewInstanceRepository(db)

	seed := makeInstance("t-100", "LEAVE_REQUEST", "lr-tx", workflowDomain.InstanceInProgress)
	if err := instRepo.Create(ctx, seed); err != nil {
		t.Fatalf("seed instance: %v", err)
	}

	err := guow.WithinInstanceTx(ctx, "t-100", seed.InstanceID, func(r uow.Repos, i *workflowDomain.Instance) error {
		if i == nil || i.InstanceID != seed.InstanceID || len(i.Steps) != 2 {
			t.Fatalf("unexpected instance passed to fn: %+v", i)
		}

		step := i.CurrentStep()
		resolver := "u-approver"
		step.Status = workflowDomain.StepApproved
		step.ResolverID = &resolver
		if err := r.Instances.SaveStep(ctx, step); err != nil {
			return err
		}

		i.CurrentStepOrder = 2
		return r.Instances.SaveInstance(ctx, i)
	})
	if err != nil {
		t.Fatalf("WithinInstanceTx commit err: %v", err)
	}

	got, err := instRepo.GetByInstanceID(ctx, "t-100", seed.InstanceID)
	if err != nil {
		t.Fatalf("GetByInstanceID post-commit: %v", err)
	}
	if got.CurrentStepOrder != 2 {
		t.Fatalf("current step not advanced, got=%d", got.CurrentStepOrder)
	}
}

func TestGormUoW_WithinInstanceTx_Rollback(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	guow := NewGormUoW(db)
	instRepo := NewInstanceRepository(db)

	seed := makeInstance("t-100", "LEAVE_REQUEST", "lr-tx-rb", workflowDomain.InstanceInProgress)
	if err := instRepo.Create(ctx, seed); err != nil {
		t.Fatalf("seed instance: %v", err)
	}

	sentinel := errors.New("stop")

	_ = guow.WithinInstanceTx(ctx, "t-100", seed.InstanceID, func(r uow.Repos, i *workflowDomain.Instance) error {
		i.Status = workflowDomain.InstanceCancelled
		if err := r.Instances.SaveInstance(ctx, i); err != nil {
			return err
		}
		return sentinel // force rollback
	})

	got, err := instRepo.GetByInstanceID(ctx, "t-100", seed.InstanceID)
	if err != nil {
		t.Fatalf("post-rollback GetByInstanceID: %v", err)
	}
	if got.Status != workflowDomain.InstanceInProgress {
		t.Fatalf("expected IN_PROGRESS after rollback, got %s", got.Status)
	}
}

func TestGormUoW_WithinInstanceTx_NotFound(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	guow := NewGormUoW(db)

	err := guow.WithinInstanceTx(ctx, "t-100", "no-such-instance", func(r uow.Repos, i *workflowDomain.Instance) error {
		t.Fatalf("callback should not run when the instance is missing")
		return nil
	})
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}
