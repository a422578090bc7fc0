package regex_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Valino123/trip-memory/pkg/extractor/regex"
)

func TestRegexExtractor(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Regex Extractor Suite")
}

var _ = Describe("Extractor", func() {
	var e *regex.Extractor

	BeforeEach(func() {
		e = regex.New()
	})

	It("extracts budget, departure city, and likes, leaving crowd aversion unset", func() {
		prefs, err := e.Extract(context.Background(), []string{
			"from Boston I want beach and museums under 1500",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(prefs["budget"]).To(Equal(1500))
		Expect(prefs["departure_city"]).To(Equal("Boston"))
		Expect(prefs["likes"]).To(Equal([]string{"beach", "culture"}))
		Expect(prefs).NotTo(HaveKey("avoid_crowds"))
	})

	It("detects crowd avoidance", func() {
		prefs, err := e.Extract(context.Background(), []string{"please avoid crowded areas"})
		Expect(err).NotTo(HaveOccurred())
		Expect(prefs["avoid_crowds"]).To(BeTrue())
	})

	It("omits keys it cannot find", func() {
		prefs, err := e.Extract(context.Background(), []string{"just saying hello"})
		Expect(err).NotTo(HaveOccurred())
		Expect(prefs).To(BeEmpty())
	})
})
