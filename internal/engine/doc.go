// Package engine holds the aggregation primitives the reports are built from:
// criteria filtering, single-pass grouping, month and year bucketing, ranking
// and footer totals.
//
// Everything here is a pure function of its inputs. Nothing logs, caches or
// returns an error: an unparseable date reads as "no date", a missing field as
// 0 or a sentinel label, and every ratio with a zero denominator as 0.
package engine
