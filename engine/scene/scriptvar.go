package scene

import (
	"github.com/spaghettifunk/aurora/engine/core"
	"github.com/spaghettifunk/aurora/engine/math"
)

// ScriptVarType enumerates the value types a script variable can hold.
type ScriptVarType int

const (
	ScriptVarTypeString ScriptVarType = iota
	ScriptVarTypeInt
	ScriptVarTypeFloat
	ScriptVarTypeBool
	ScriptVarTypeVec2
)

func (t ScriptVarType) String() string {
	switch t {
	case ScriptVarTypeString:
		return "string"
	case ScriptVarTypeInt:
		return "int"
	case ScriptVarTypeFloat:
		return "float"
	case ScriptVarTypeBool:
		return "bool"
	case ScriptVarTypeVec2:
		return "vec2"
	}
	return "unknown"
}

// ScriptVar is a typed named variable exposed to game logic. The
// type is fixed at creation; assignments with a mismatched type or
// against a read-only variable are logged and dropped.
type ScriptVar struct {
	name     string
	varType  ScriptVarType
	value    any
	readOnly bool
}

// NewScriptVar creates a variable whose type is inferred from the
// initial value. Supported value types are string, int, float32,
// bool and math.Vec2.
func NewScriptVar(name string, value any, readOnly bool) *ScriptVar {
	varType, ok := scriptVarTypeOf(value)
	if !ok {
		core.LogFatal("unsupported script variable value type for '%s'", name)
	}
	return &ScriptVar{
		name:     name,
		varType:  varType,
		value:    value,
		readOnly: readOnly,
	}
}

func (v *ScriptVar) GetName() string        { return v.name }
func (v *ScriptVar) GetType() ScriptVarType { return v.varType }
func (v *ScriptVar) IsReadOnly() bool       { return v.readOnly }
func (v *ScriptVar) GetValue() any          { return v.value }

// SetValue assigns a new value. A type mismatch or a read-only
// target is logged and the assignment is skipped.
func (v *ScriptVar) SetValue(value any) bool {
	if v.readOnly {
		core.LogWarn("ignoring assignment to read-only script variable '%s'", v.name)
		return false
	}
	valueType, ok := scriptVarTypeOf(value)
	if !ok || valueType != v.varType {
		core.LogWarn("ignoring type mismatched assignment to script variable '%s' (%s)", v.name, v.varType)
		return false
	}
	v.value = value
	return true
}

// Copy returns an independent copy of the variable.
func (v *ScriptVar) Copy() *ScriptVar {
	dup := *v
	return &dup
}

func scriptVarTypeOf(value any) (ScriptVarType, bool) {
	switch value.(type) {
	case string:
		return ScriptVarTypeString, true
	case int:
		return ScriptVarTypeInt, true
	case float32:
		return ScriptVarTypeFloat, true
	case bool:
		return ScriptVarTypeBool, true
	case math.Vec2:
		return ScriptVarTypeVec2, true
	}
	return 0, false
}

// CoerceScriptValue converts json decoded numbers (float64) to the
// target variable type so that loaded override values can be
// assigned through SetValue.
func CoerceScriptValue(varType ScriptVarType, value any) any {
	f, ok := value.(float64)
	if !ok {
		return value
	}
	switch varType {
	case ScriptVarTypeInt:
		return int(f)
	case ScriptVarTypeFloat:
		return float32(f)
	}
	return value
}
