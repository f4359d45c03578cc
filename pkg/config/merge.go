package config

import (
	"fmt"
	"reflect"
)

// MergeConfig 合并配置
// - 如果 dst 和 src 都为 nil，返回错误
// - 如果 dst 为 nil，返回 src
// - 如果 src 为 nil，返回 dst
// - 如果都不为 nil，src 的非零值覆盖 dst 的值，返回合并后的 dst
//
// 各模块以 MergeConfig(DefaultConfig(), cfg) 的方式接收用户配置，
// 使得用户只需要传递关心的字段。
func MergeConfig[T any](dst, src *T) (*T, error) {
	if dst == nil && src == nil {
		return nil, ErrNilConfig
	}
	if dst == nil {
		return src, nil
	}
	if src == nil {
		return dst, nil
	}

	if err := mergeValues(reflect.ValueOf(dst).Elem(), reflect.ValueOf(src).Elem()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMergeFailed, err)
	}

	return dst, nil
}

// mergeValues 递归合并两个 reflect.Value
func mergeValues(dst, src reflect.Value) error {
	// src 为零值时不覆盖
	if !src.IsValid() || isZeroValue(src) {
		return nil
	}

	switch dst.Kind() {
	case reflect.Struct:
		return mergeStruct(dst, src)
	case reflect.Map:
		return mergeMap(dst, src)
	case reflect.Ptr:
		return mergePointer(dst, src)
	default:
		// 基本类型与切片直接覆盖
		if dst.CanSet() {
			dst.Set(src)
		}
		return nil
	}
}

// mergeStruct 逐字段合并结构体
func mergeStruct(dst, src reflect.Value) error {
	srcType := src.Type()
	for i := 0; i < src.NumField(); i++ {
		fieldType := srcType.Field(i)
		if !fieldType.IsExported() {
			continue
		}

		dstField := dst.FieldByName(fieldType.Name)
		if !dstField.IsValid() || !dstField.CanSet() {
			continue
		}

		if err := mergeValues(dstField, src.Field(i)); err != nil {
			return fmt.Errorf("field %s: %w", fieldType.Name, err)
		}
	}
	return nil
}

// mergeMap 合并 map（src 的键覆盖 dst 的同名键）
func mergeMap(dst, src reflect.Value) error {
	if dst.IsNil() {
		dst.Set(reflect.MakeMap(dst.Type()))
	}

	iter := src.MapRange()
	for iter.Next() {
		dst.SetMapIndex(iter.Key(), iter.Value())
	}
	return nil
}

// mergePointer 合并指针指向的值
func mergePointer(dst, src reflect.Value) error {
	if src.IsNil() {
		return nil
	}
	if dst.IsNil() {
		dst.Set(reflect.New(dst.Type().Elem()))
	}
	return mergeValues(dst.Elem(), src.Elem())
}

// isZeroValue 检查是否为零值
func isZeroValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.String:
		return v.String() == ""
	case reflect.Ptr, reflect.Interface, reflect.Func:
		return v.IsNil()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	case reflect.Struct:
		return reflect.DeepEqual(v.Interface(), reflect.Zero(v.Type()).Interface())
	default:
		return false
	}
}
