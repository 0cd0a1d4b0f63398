package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/kilianp07/hydroalert/core/alert"
	"github.com/kilianp07/hydroalert/core/apperr"
	"github.com/kilianp07/hydroalert/core/audit"
	"github.com/kilianp07/hydroalert/core/model"
)

// Dataset is a bulk import of villages, tankers and environmental records.
type Dataset struct {
	Villages []model.Village             `json:"villages"`
	Tankers  []model.Tanker              `json:"tankers"`
	Records  []model.EnvironmentalRecord `json:"environmental_records"`
}

// ImportReport counts what an import inserted. Entities whose id already
// exists are counted in Skipped.
type ImportReport struct {
	Villages int `json:"villages"`
	Tankers  int `json:"tankers"`
	Records  int `json:"records"`
	Skipped  int `json:"skipped"`
}

// LoadDataset reads a JSON dataset file.
func LoadDataset(path string) (Dataset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("read dataset: %w", err)
	}
	var ds Dataset
	if err := json.Unmarshal(b, &ds); err != nil {
		return Dataset{}, fmt.Errorf("decode dataset %s: %w", path, err)
	}
	return ds, nil
}

// Import validates ds and inserts it village first. Records must reference a
// village known to the store or present in ds.
func (e *Engine) Import(ctx context.Context, ds Dataset) (ImportReport, error) {
	const op = "import"
	if err := validateDataset(ds); err != nil {
		return ImportReport{}, err
	}
	var rep ImportReport
	insert := func(err error, n *int) error {
		switch {
		case err == nil:
			*n++
		case errors.Is(err, apperr.ErrConflict):
			rep.Skipped++
		default:
			return apperr.Upstream(op, err)
		}
		return nil
	}

	for _, v := range ds.Villages {
		v.WSI = model.ClampWSI(v.WSI)
		if v.UpdatedAt.IsZero() {
			v.UpdatedAt = e.now()
		}
		if err := insert(e.store.InsertVillage(ctx, v), &rep.Villages); err != nil {
			return rep, err
		}
	}
	for _, t := range ds.Tankers {
		if err := insert(e.store.InsertTanker(ctx, t), &rep.Tankers); err != nil {
			return rep, err
		}
	}
	known := make(map[string]bool, len(ds.Villages))
	for _, v := range ds.Villages {
		known[v.ID] = true
	}
	for _, r := range ds.Records {
		if !known[r.VillageID] {
			if _, err := e.store.GetVillage(ctx, r.VillageID); err != nil {
				return rep, apperr.Upstream(op, err)
			}
			known[r.VillageID] = true
		}
		if err := insert(e.store.InsertEnvironmentalRecord(ctx, r), &rep.Records); err != nil {
			return rep, err
		}
	}
	e.record(ctx, audit.Entry{Op: "import"}, nil)
	e.log.Infof("import: %+v", rep)
	return rep, nil
}

func validateDataset(ds Dataset) error {
	const op = "import"
	seen := map[string]bool{}
	for i, v := range ds.Villages {
		switch {
		case v.ID == "":
			return apperr.Validation(op, "village %d: id is required", i)
		case v.Name == "":
			return apperr.Validation(op, "village %s: name is required", v.ID)
		case v.Population < 0:
			return apperr.Validation(op, "village %s: negative population", v.ID)
		case v.CurrentLevelPct < 0 || v.CurrentLevelPct > 100:
			return apperr.Validation(op, "village %s: current level %v out of [0,100]", v.ID, v.CurrentLevelPct)
		case seen[v.ID]:
			return apperr.Validation(op, "duplicate village id %q", v.ID)
		}
		seen[v.ID] = true
	}
	seen = map[string]bool{}
	for i, t := range ds.Tankers {
		switch {
		case t.ID == "":
			return apperr.Validation(op, "tanker %d: id is required", i)
		case t.Status == model.TankerEnRoute:
			return apperr.Validation(op, "tanker %s: cannot import an En_Route tanker", t.ID)
		case seen[t.ID]:
			return apperr.Validation(op, "duplicate tanker id %q", t.ID)
		}
		seen[t.ID] = true
	}
	for i, r := range ds.Records {
		if r.VillageID == "" {
			return apperr.Validation(op, "record %d: village id is required", i)
		}
		if r.RecordDate.IsZero() {
			return apperr.Validation(op, "record %d: record date is required", i)
		}
	}
	return nil
}

func sortPayloads(p []alert.Payload) {
	sort.SliceStable(p, func(i, j int) bool { return p[i].WSI > p[j].WSI })
}
