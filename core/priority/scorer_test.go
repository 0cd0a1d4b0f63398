package priority

import (
	"testing"

	"github.com/kilianp07/hydroalert/core/model"
)

func defaults() Config {
	var c Config
	c.SetDefaults()
	return c
}

func TestScore(t *testing.T) {
	cfg := defaults()
	tests := []struct {
		name    string
		v       model.Village
		maxPop  int
		score   int
		tankers int
	}{
		{"critical large dry", model.Village{WSI: 90, Population: 100000, CurrentLevelPct: 15}, 100000, 93, 4},
		{"boundary 80 is elevated", model.Village{WSI: 80, Population: 10000, CurrentLevelPct: 50}, 100000, 59, 1},
		{"boundary 60 is elevated", model.Village{WSI: 60, Population: 0, CurrentLevelPct: 50}, 100000, 42, 1},
		{"calm", model.Village{WSI: 59.99, Population: 70000, CurrentLevelPct: 20}, 70000, 72, 0},
		{"zero max population", model.Village{WSI: 50, Population: 5000, CurrentLevelPct: 10}, 0, 35, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.v, tt.maxPop, cfg)
			if got.PriorityScore != tt.score || got.SuggestedTankers != tt.tankers {
				t.Fatalf("got %+v, want score %d tankers %d", got, tt.score, tt.tankers)
			}
		})
	}
}

func TestScoreIsPure(t *testing.T) {
	v := model.Village{ID: "v1", WSI: 85, Population: 1000}
	before := v
	_ = Score(v, 1000, defaults())
	if v != before {
		t.Fatalf("village mutated")
	}
}

func TestRank(t *testing.T) {
	villages := []model.Village{
		{ID: "c", WSI: 40, Population: 1000, CurrentLevelPct: 80},
		{ID: "b", WSI: 90, Population: 50000, CurrentLevelPct: 10},
		{ID: "a", WSI: 90, Population: 50000, CurrentLevelPct: 10},
		{ID: "d", WSI: 95, Population: 0, CurrentLevelPct: 60},
	}
	ranked := Rank(villages, defaults())
	var ids []string
	for _, r := range ranked {
		ids = append(ids, r.Village.ID)
	}
	want := []string{"a", "b", "d", "c"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("order %v, want %v", ids, want)
		}
	}
	if ranked[0].PriorityScore != 93 {
		t.Fatalf("unexpected top score %d", ranked[0].PriorityScore)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := defaults()
	cfg.ElevatedWSI = 90
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected threshold order error")
	}
	if err := defaults().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}
