package rule

import (
	"testing"
)

func TestEvaluate(t *testing.T) {
	engine, err := NewCELEngineAdapter()
	if err != nil {
		t.Fatalf("NewCELEngineAdapter: %v", err)
	}

	facts := map[string]interface{}{
		"store_id":      "store-1",
		"buyer_segment": "vip",
	}

	tests := []struct {
		name    string
		rule    string
		want    bool
		wantErr bool
	}{
		{name: "空规则无条件通过", rule: "", want: true},
		{name: "命中", rule: `fact.store_id == "store-1"`, want: true},
		{name: "未命中", rule: `fact.buyer_segment == "new"`, want: false},
		{name: "组合条件", rule: `fact.store_id == "store-1" && fact.buyer_segment == "vip"`, want: true},
		{name: "语法错误", rule: `fact.store_id ==`, wantErr: true},
		{name: "非布尔结果", rule: `fact.store_id`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Evaluate(tt.rule, facts)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.rule, got, tt.want)
			}
		})
	}
}

func TestEvaluateCachesPrograms(t *testing.T) {
	engine, err := NewCELEngineAdapter()
	if err != nil {
		t.Fatalf("NewCELEngineAdapter: %v", err)
	}

	rule := `fact.store_id == "store-1"`
	for i := 0; i < 3; i++ {
		if _, err := engine.Evaluate(rule, map[string]interface{}{"store_id": "store-1"}); err != nil {
			t.Fatalf("Evaluate: %v", err)
		}
	}
	if len(engine.programs) != 1 {
		t.Errorf("program cache size = %d, want 1", len(engine.programs))
	}
}
