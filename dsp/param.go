// SPDX-License-Identifier: EPL-2.0

package dsp

import (
	"math"

	"github.com/ik5/audmix/utils"
)

type ParamType uint8

const (
	ParamFloat ParamType = iota
	ParamInt
	ParamBool
	ParamData
)

func (t ParamType) String() string {
	switch t {
	case ParamFloat:
		return "float"
	case ParamInt:
		return "int"
	case ParamBool:
		return "bool"
	case ParamData:
		return "data"
	default:
		return "unknown"
	}
}

// ParamDesc declares one parameter of a unit. Min and Max bound float and
// int parameters; values outside them are clamped on set.
type ParamDesc struct {
	Name    string
	Label   string
	Type    ParamType
	Min     float64
	Max     float64
	Default float64
}

func floatParam(name, label string, lo, hi, def float64) ParamDesc {
	return ParamDesc{Name: name, Label: label, Type: ParamFloat, Min: lo, Max: hi, Default: def}
}

func intParam(name string, lo, hi, def int) ParamDesc {
	return ParamDesc{Name: name, Type: ParamInt, Min: float64(lo), Max: float64(hi), Default: float64(def)}
}

// param keeps the value callers see and the copy the render side reads.
type param struct {
	desc ParamDesc

	value float64
	data  []byte

	render     float64
	renderData []byte
}

func newParams(descs []ParamDesc) []param {
	ps := make([]param, len(descs))
	for i, d := range descs {
		ps[i] = param{desc: d, value: d.Default, render: d.Default}
	}
	return ps
}

func (p *param) clamp(v float64) float64 {
	if math.IsNaN(v) {
		return p.desc.Default
	}
	v = utils.Clamp(v, p.desc.Min, p.desc.Max)
	if p.desc.Type == ParamInt {
		v = math.Round(v)
	}
	return v
}

func (u *Unit) param(index int, typ ParamType) (*param, error) {
	if index < 0 || index >= len(u.params) {
		return nil, ErrParamIndex
	}
	p := &u.params[index]
	if p.desc.Type != typ {
		return nil, ErrParamType
	}
	return p, nil
}

// NumParams returns the number of parameters the unit declares.
func (u *Unit) NumParams() int { return len(u.params) }

// ParamInfo describes parameter index.
func (u *Unit) ParamInfo(index int) (ParamDesc, error) {
	if index < 0 || index >= len(u.params) {
		return ParamDesc{}, ErrParamIndex
	}
	return u.params[index].desc, nil
}

// ParamIndex looks a parameter up by name.
func (u *Unit) ParamIndex(name string) (int, bool) {
	for i := range u.params {
		if u.params[i].desc.Name == name {
			return i, true
		}
	}
	return -1, false
}

// SetFloat stores v clamped to the parameter's range. NaN restores the
// default.
func (u *Unit) SetFloat(index int, v float64) error {
	p, err := u.param(index, ParamFloat)
	if err != nil {
		return err
	}
	p.value = p.clamp(v)
	return nil
}

func (u *Unit) Float(index int) (float64, error) {
	p, err := u.param(index, ParamFloat)
	if err != nil {
		return 0, err
	}
	return p.value, nil
}

// SetInt stores v clamped to the parameter's range.
func (u *Unit) SetInt(index int, v int) error {
	p, err := u.param(index, ParamInt)
	if err != nil {
		return err
	}
	p.value = p.clamp(float64(v))
	return nil
}

func (u *Unit) Int(index int) (int, error) {
	p, err := u.param(index, ParamInt)
	if err != nil {
		return 0, err
	}
	return int(p.value), nil
}

func (u *Unit) SetBool(index int, v bool) error {
	p, err := u.param(index, ParamBool)
	if err != nil {
		return err
	}
	p.value = 0
	if v {
		p.value = 1
	}
	return nil
}

func (u *Unit) Bool(index int) (bool, error) {
	p, err := u.param(index, ParamBool)
	if err != nil {
		return false, err
	}
	return p.value != 0, nil
}

// SetData stores a copy of b.
func (u *Unit) SetData(index int, b []byte) error {
	p, err := u.param(index, ParamData)
	if err != nil {
		return err
	}
	p.data = append([]byte(nil), b...)
	return nil
}

// Data returns a copy of the stored blob.
func (u *Unit) Data(index int) ([]byte, error) {
	p, err := u.param(index, ParamData)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), p.data...), nil
}

// Value returns the render-side value of a numeric parameter, as last synced.
// It is meant for ProcessFunc callbacks and returns 0 for a bad index.
func (u *Unit) Value(index int) float64 {
	if index < 0 || index >= len(u.params) {
		return 0
	}
	return u.params[index].render
}

// DataValue is the render-side counterpart of Data. The slice must not be
// modified.
func (u *Unit) DataValue(index int) []byte {
	if index < 0 || index >= len(u.params) {
		return nil
	}
	return u.params[index].renderData
}

func (u *Unit) syncParams() {
	for i := range u.params {
		p := &u.params[i]
		p.render = p.value
		// SetData replaces the slice, so sharing it is safe
		p.renderData = p.data
	}
}
