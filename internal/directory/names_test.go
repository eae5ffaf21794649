package directory

import (
	"context"
	"errors"
	"testing"
	"time"
)

type countingSource struct {
	calls int
	name  string
	err   error
}

func (c *countingSource) DepartmentName(context.Context, int64) (string, error) {
	c.calls++
	return c.name, c.err
}

func (c *countingSource) JobTitleName(context.Context, int64) (string, error) {
	c.calls++
	return c.name, c.err
}

func TestNamesCachesAndForgets(t *testing.T) {
	src := &countingSource{name: "Finance"}
	names := NewNames(src, src, 16, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := names.DepartmentName(ctx, 1)
		if err != nil || got != "Finance" {
			t.Fatalf("DepartmentName() = %q, %v", got, err)
		}
	}
	if src.calls != 1 {
		t.Fatalf("source calls = %d, want 1", src.calls)
	}

	src.name = "Treasury"
	names.ForgetDepartment(1)
	if got, _ := names.DepartmentName(ctx, 1); got != "Treasury" {
		t.Fatalf("DepartmentName() after forget = %q", got)
	}

	if _, err := names.JobTitleName(ctx, 1); err != nil {
		t.Fatalf("JobTitleName() error = %v", err)
	}
	if src.calls != 3 {
		t.Fatalf("job titles and departments must not share keys; calls = %d", src.calls)
	}
}

func TestNamesDoesNotCacheErrors(t *testing.T) {
	src := &countingSource{err: errors.New("down")}
	names := NewNames(src, src, 16, time.Minute)
	ctx := context.Background()

	if _, err := names.JobTitleName(ctx, 2); err == nil {
		t.Fatal("expected error")
	}
	src.err, src.name = nil, "Analyst"
	got, err := names.JobTitleName(ctx, 2)
	if err != nil || got != "Analyst" {
		t.Fatalf("JobTitleName() = %q, %v", got, err)
	}
}
