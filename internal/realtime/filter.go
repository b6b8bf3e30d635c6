package realtime

import (
	"fmt"
)

// Clause 列等值条件的合取
type Clause map[string]string

// Filter 条件的析取；空 Filter 匹配表中的所有行
type Filter []Clause

// Where 以成对的列名、值构造条件，例如 Where("sender_id", a, "recipient_id", b)
func Where(pairs ...string) Clause {
	if len(pairs)%2 != 0 {
		panic("realtime.Where: odd number of arguments")
	}
	c := make(Clause, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		c[pairs[i]] = pairs[i+1]
	}
	return c
}

// AnyOf 任一条件满足即匹配
func AnyOf(clauses ...Clause) Filter {
	return Filter(clauses)
}

// Match 所有列都相等时匹配
func (c Clause) Match(fields map[string]string) bool {
	for col, want := range c {
		got, ok := fields[col]
		if !ok || got != want {
			return false
		}
	}
	return true
}

func (f Filter) Match(fields map[string]string) bool {
	if len(f) == 0 {
		return true
	}
	for _, c := range f {
		if c.Match(fields) {
			return true
		}
	}
	return false
}

// Validate 拒绝空列名
func (f Filter) Validate() error {
	for i, c := range f {
		for col := range c {
			if col == "" {
				return fmt.Errorf("clause %d has an empty column name", i)
			}
		}
	}
	return nil
}
