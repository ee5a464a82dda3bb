package main

import (
	"strconv"
)

type nullableUint64 struct {
	val *uint64
}

func (n *nullableUint64) String() string {
	if n.val == nil {
		return "nil"
	}
	return strconv.FormatUint(*n.val, decBase)
}

func (n *nullableUint64) Set(value string) error {
	res, err := strconv.ParseUint(value, decBase, 64)
	if err != nil {
		return err
	}
	n.val = new(uint64)
	*n.val = res
	return nil
}

type nullableString struct {
	val *string
}

func (n *nullableString) String() string {
	if n.val == nil {
		return "nil"
	}
	return *n.val
}

func (n *nullableString) Set(value string) error {
	n.val = new(string)
	*n.val = value
	return nil
}
