// quickorder-service/internal/infrastructure/rule/cel_engine.go
package rule

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// CELEngineAdapter 用 CEL 表达式评估促销资格规则。
// 规则以字符串形式随促销条目下发，例如：
//
//	fact.store_id == "store-1" && fact.buyer_segment == "vip"
//
// 编译结果按表达式缓存，同一条规则只编译一次。
type CELEngineAdapter struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program
}

// NewCELEngineAdapter 创建一个新的规则引擎适配器实例。
func NewCELEngineAdapter() (*CELEngineAdapter, error) {
	env, err := cel.NewEnv(
		cel.Variable("fact", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &CELEngineAdapter{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// Evaluate 评估一条规则。空规则视为无条件通过。
func (a *CELEngineAdapter) Evaluate(ruleDefinition string, facts map[string]interface{}) (bool, error) {
	if ruleDefinition == "" {
		return true, nil
	}

	prg, err := a.program(ruleDefinition)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(map[string]interface{}{"fact": facts})
	if err != nil {
		return false, fmt.Errorf("rule evaluation failed: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("rule did not evaluate to a boolean: %v", out.Value())
	}
	return result, nil
}

func (a *CELEngineAdapter) program(expr string) (cel.Program, error) {
	a.mu.RLock()
	prg, ok := a.programs[expr]
	a.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, issues := a.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("rule compile error: %w", issues.Err())
	}
	prg, err := a.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("rule program error: %w", err)
	}

	a.mu.Lock()
	a.programs[expr] = prg
	a.mu.Unlock()
	return prg, nil
}
