// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package slice complements the standard [slices] package with the small
generic helpers the relay uses to shape participant and recipient lists.
*/
package slice

// Map maps a slice of type T to a slice of type U using the provided transformation function.
func Map[T any, U any](input []T, transform func(T) U) []U {
	if input == nil {
		return nil
	}

	result := make([]U, len(input))
	for i, v := range input {
		result[i] = transform(v)
	}
	return result
}

// Filter returns the elements for which predicate is true, in input order.
// The result is never nil so it serialises as an empty JSON array.
func Filter[T any](input []T, predicate func(T) bool) []T {
	result := make([]T, 0, len(input))
	for _, v := range input {
		if predicate(v) {
			result = append(result, v)
		}
	}
	return result
}

// Without returns input minus every element equal to drop.
func Without[T comparable](input []T, drop T) []T {
	return Filter(input, func(v T) bool { return v != drop })
}

// Unique drops repeated elements, keeping the first occurrence.
func Unique[T comparable](input []T) []T {
	seen := make(map[T]struct{}, len(input))
	return Filter(input, func(v T) bool {
		if _, ok := seen[v]; ok {
			return false
		}
		seen[v] = struct{}{}
		return true
	})
}
