package engine

import (
	"fmt"

	"go-grid-engine/internal/model"
)

// Problem is one malformed part of a request that was dropped.
type Problem struct {
	Kind string
	Err  error
}

func (p Problem) Error() string {
	return fmt.Sprintf("%s: %v", p.Kind, p.Err)
}

// normalizeRequest drops the parts of req that cannot be applied and reports
// them. It never rejects the request as a whole. rowCount is the size of the
// dataset cell updates will address.
func normalizeRequest(req model.Request, rowCount int) (model.Request, []Problem) {
	var problems []Problem

	if req.Sort != nil {
		clean := make([]model.SortCriterion, 0, len(req.Sort))
		for i, c := range req.Sort {
			if c.Field == "" {
				problems = append(problems, Problem{"sort", fmt.Errorf("criterion %d has no field", i)})
				continue
			}
			clean = append(clean, c)
		}
		req.Sort = clean
	}

	if req.Filter != nil {
		clean := make([]model.FilterCriterion, 0, len(req.Filter))
		for i, c := range req.Filter {
			if c.Field == "" {
				problems = append(problems, Problem{"filter", fmt.Errorf("criterion %d has no field", i)})
				continue
			}
			if !c.Operator.Known() {
				problems = append(problems, Problem{"filter", fmt.Errorf("criterion %d has unknown operator %q", i, c.Operator)})
				continue
			}
			clean = append(clean, c)
		}
		req.Filter = clean
	}

	if req.Group != nil {
		clean := make([]model.GroupCriterion, 0, len(req.Group))
		for i, c := range req.Group {
			if c.Field == "" {
				problems = append(problems, Problem{"group", fmt.Errorf("criterion %d has no field", i)})
				continue
			}
			clean = append(clean, c)
		}
		req.Group = clean
	}

	if req.CellUpdates != nil {
		clean := make([]model.CellUpdate, 0, len(req.CellUpdates))
		for i, u := range req.CellUpdates {
			if u.Field == "" {
				problems = append(problems, Problem{"cellUpdate", fmt.Errorf("update %d has no field", i)})
				continue
			}
			if u.RowIndex < 0 || u.RowIndex >= rowCount {
				problems = append(problems, Problem{"cellUpdate", fmt.Errorf("update %d row index %d outside [0,%d)", i, u.RowIndex, rowCount)})
				continue
			}
			clean = append(clean, u)
		}
		req.CellUpdates = clean
	}

	if req.PageSize != nil && req.Page == nil {
		problems = append(problems, Problem{"page", fmt.Errorf("pageSize %d without page", *req.PageSize)})
	}

	return req, problems
}

func knownAction(a model.Action) bool {
	switch a {
	case model.ActionInit, model.ActionSort, model.ActionFilter, model.ActionGroup, model.ActionUpdate:
		return true
	}
	return false
}
