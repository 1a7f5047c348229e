package script

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/eavesdrop"
)

// fieldsToTable converts a Go map to a Lua table.
func fieldsToTable(L *lua.LState, fields map[string]any) *lua.LTable {
	tbl := L.NewTable()
	for k, v := range fields {
		tbl.RawSetString(k, anyToLValue(L, v))
	}
	return tbl
}

// tableToFields converts a Lua table to event fields. Non-string keys are
// dropped.
func tableToFields(tbl *lua.LTable) eavesdrop.Fields {
	fields := make(eavesdrop.Fields)
	tbl.ForEach(func(key, value lua.LValue) {
		if k, ok := key.(lua.LString); ok {
			fields[string(k)] = lvalueToAny(value)
		}
	})
	return fields
}

func anyToLValue(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []any:
		tbl := L.NewTable()
		for i, item := range val {
			tbl.RawSetInt(i+1, anyToLValue(L, item))
		}
		return tbl
	case map[string]any:
		return fieldsToTable(L, val)
	case eavesdrop.Fields:
		return fieldsToTable(L, val)
	default:
		return lua.LString(fmt.Sprintf("%v", val))
	}
}

func lvalueToAny(v lua.LValue) any {
	switch val := v.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		return float64(val)
	case lua.LString:
		return string(val)
	case *lua.LTable:
		return tableToAny(val)
	default:
		return v.String()
	}
}

// tableToAny converts a Lua table to a slice when its keys are a 1..n
// sequence, otherwise to a map.
func tableToAny(tbl *lua.LTable) any {
	maxIdx := 0
	isArray := true
	tbl.ForEach(func(k, _ lua.LValue) {
		num, ok := k.(lua.LNumber)
		if !ok {
			isArray = false
			return
		}
		if idx := int(num); idx > maxIdx {
			maxIdx = idx
		}
	})

	if isArray && maxIdx > 0 {
		arr := make([]any, maxIdx)
		tbl.ForEach(func(k, v lua.LValue) {
			if num, ok := k.(lua.LNumber); ok {
				if idx := int(num) - 1; idx >= 0 && idx < maxIdx {
					arr[idx] = lvalueToAny(v)
				}
			}
		})
		return arr
	}

	m := make(map[string]any)
	tbl.ForEach(func(k, v lua.LValue) {
		var key string
		switch kv := k.(type) {
		case lua.LString:
			key = string(kv)
		case lua.LNumber:
			key = fmt.Sprintf("%v", float64(kv))
		default:
			key = k.String()
		}
		m[key] = lvalueToAny(v)
	})
	return m
}
