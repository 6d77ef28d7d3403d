package utils

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestAssertType(t *testing.T) {
	one := 1
	_, err := AssertType[string](one)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err, test.ShouldBeError, NewUnexpectedTypeError[string](one))

	_, err = AssertType[myAssertIfc](one)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err, test.ShouldBeError, NewUnexpectedTypeError[myAssertIfc](one))

	asserted, err := AssertType[myAssertIfc](myAssertInt(one))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, asserted.method1(), test.ShouldBeError, errors.New("cool 8)"))
}

type myAssertIfc interface {
	method1() error
}

type myAssertInt int

func (m myAssertInt) method1() error {
	return errors.New("cool 8)")
}

func TestAssertNumber(t *testing.T) {
	for _, v := range []interface{}{float32(2), 2.0, int8(2), uint8(2), int16(2), uint16(2), int32(2), uint32(2), int64(2), uint64(2), 2} {
		f, err := AssertNumber(v)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, f, test.ShouldEqual, 2.0)
	}
	_, err := AssertNumber("2")
	test.That(t, err, test.ShouldBeError, NewUnexpectedTypeError[float64]("2"))
}
