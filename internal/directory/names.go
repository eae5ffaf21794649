// Package directory caches department and job title display names.
package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/hongminglow/deepsea-be/internal/metrics"
)

type nameSource interface {
	DepartmentName(ctx context.Context, id int64) (string, error)
	JobTitleName(ctx context.Context, id int64) (string, error)
}

type departmentNames interface {
	DepartmentName(ctx context.Context, id int64) (string, error)
}

type jobTitleNames interface {
	JobTitleName(ctx context.Context, id int64) (string, error)
}

type source struct {
	departmentNames
	jobTitleNames
}

// Names is a short-lived LRU in front of the name lookups. Only display
// names are cached; nothing here is consulted for authorization.
type Names struct {
	src   nameSource
	cache *expirable.LRU[string, string]
}

// NewNames builds a cache holding up to size names for ttl each.
func NewNames(departments departmentNames, jobTitles jobTitleNames, size int, ttl time.Duration) *Names {
	return &Names{
		src:   source{departments, jobTitles},
		cache: expirable.NewLRU[string, string](size, nil, ttl),
	}
}

func (n *Names) DepartmentName(ctx context.Context, id int64) (string, error) {
	return n.lookup(departmentKey(id), func() (string, error) { return n.src.DepartmentName(ctx, id) })
}

func (n *Names) JobTitleName(ctx context.Context, id int64) (string, error) {
	return n.lookup(jobTitleKey(id), func() (string, error) { return n.src.JobTitleName(ctx, id) })
}

// ForgetDepartment drops a cached department name.
func (n *Names) ForgetDepartment(id int64) { n.cache.Remove(departmentKey(id)) }

// ForgetJobTitle drops a cached job title name.
func (n *Names) ForgetJobTitle(id int64) { n.cache.Remove(jobTitleKey(id)) }

func (n *Names) lookup(key string, load func() (string, error)) (string, error) {
	if name, ok := n.cache.Get(key); ok {
		metrics.NameCacheHit()
		return name, nil
	}
	metrics.NameCacheMiss()
	name, err := load()
	if err != nil {
		return "", err
	}
	n.cache.Add(key, name)
	return name, nil
}

func departmentKey(id int64) string { return fmt.Sprintf("department:%d", id) }
func jobTitleKey(id int64) string   { return fmt.Sprintf("job_title:%d", id) }
