package cliexit_test

import (
	"errors"
	"fmt"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Valino123/trip-memory/pkg/cliexit"
)

func TestCliexit(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Cliexit Suite")
}

var _ = Describe("Code", func() {
	It("returns 0 for a nil error", func() {
		Expect(cliexit.Code(nil)).To(Equal(0))
	})

	It("returns 1 for BackendUnavailable", func() {
		err := cliexit.BackendUnavailable(errors.New("redis down"))
		Expect(cliexit.Code(err)).To(Equal(1))
	})

	It("returns 2 for ArgumentError", func() {
		err := cliexit.ArgumentError(errors.New("bad flag"))
		Expect(cliexit.Code(err)).To(Equal(2))
	})

	It("returns 1 for an ordinary error", func() {
		Expect(cliexit.Code(errors.New("boom"))).To(Equal(1))
	})

	It("unwraps through fmt.Errorf %w to find the coded error", func() {
		err := fmt.Errorf("connecting: %w", cliexit.ArgumentError(errors.New("bad flag")))
		Expect(cliexit.Code(err)).To(Equal(2))
	})
})

var _ = Describe("CodedError", func() {
	It("preserves the underlying error message", func() {
		err := cliexit.BackendUnavailable(errors.New("redis down"))
		Expect(err.Error()).To(Equal("redis down"))
	})

	It("unwraps to the underlying error", func() {
		inner := errors.New("redis down")
		err := cliexit.BackendUnavailable(inner)
		Expect(errors.Unwrap(err)).To(Equal(inner))
		Expect(errors.Is(err, inner)).To(BeTrue())
	})
})
