package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odooscope/odooscope/internal/parser"
)

func TestComputeStats(t *testing.T) {
	mod := libraryModule()
	mod.Views["view_book_list"] = &parser.View{Name: "view_book_list", Model: "library.book", Type: "list", Arch: "<list/>"}
	mod.Views["view_book_form"] = &parser.View{Name: "view_book_form", Model: "library.book", Type: "form", Arch: "<form/>"}
	mod.Views["view_loan_form"] = &parser.View{Name: "view_loan_form", Model: "library.loan", Type: "form", Arch: "<form/>"}
	mod.SecurityRules["access_book"] = &parser.SecurityRule{Name: "access_book", ModelID: "library.book", PermRead: true}

	stats := ComputeStats(mod)

	assert.Equal(t, 2, stats.TotalModels)
	assert.Equal(t, 5, stats.TotalFields)
	assert.Equal(t, 1, stats.TotalMethods)

	assert.Equal(t, 2, stats.FieldTypes["Char"])
	assert.Equal(t, 2, stats.FieldTypes[parser.TypeMany2one])
	assert.Equal(t, 1, stats.FieldTypes[parser.TypeOne2many])

	assert.Equal(t, ModelSize{Fields: 3, Methods: 0}, stats.ModelSize["library.book"])
	assert.Equal(t, ModelSize{Fields: 2, Methods: 1}, stats.ModelSize["library.loan"])

	assert.Equal(t, 1, stats.Inheritance.ModelsInheriting)

	assert.Equal(t, map[string]int{"list": 1, "form": 2}, stats.ViewsByType)

	cov := stats.SecurityCoverage
	assert.Equal(t, 1, cov.ModelsWithRules)
	assert.Equal(t, 50.0, cov.CoveragePercentage)
	assert.Equal(t, []string{"library.loan"}, cov.ModelsMissingRules)
}

func TestSecurityCoverage_FullAndUnresolved(t *testing.T) {
	mod := libraryModule()
	mod.SecurityRules["access_book"] = &parser.SecurityRule{Name: "access_book", ModelID: "library.book"}
	mod.SecurityRules["access_loan"] = &parser.SecurityRule{Name: "access_loan", ModelID: "library.loan"}
	mod.SecurityRules["access_ghost"] = &parser.SecurityRule{Name: "access_ghost", ModelID: "no.such.model"}

	cov := ComputeStats(mod).SecurityCoverage
	assert.Equal(t, 2, cov.ModelsWithRules, "rules on undeclared models do not count")
	assert.Equal(t, 100.0, cov.CoveragePercentage)
	assert.Empty(t, cov.ModelsMissingRules)
}

func TestSecurityCoverage_Rounding(t *testing.T) {
	mod := parser.NewModule("/tmp/m", "m")
	for _, name := range []parser.ModelRef{"a.one", "b.two", "c.three"} {
		mod.Models[name] = parser.NewModel(name)
	}
	mod.SecurityRules["access_a"] = &parser.SecurityRule{Name: "access_a", ModelID: "a.one"}

	cov := ComputeStats(mod).SecurityCoverage
	assert.Equal(t, 33.33, cov.CoveragePercentage)
}

func TestSecurityCoverage_EmptyModule(t *testing.T) {
	cov := ComputeStats(parser.NewModule("/tmp/m", "m")).SecurityCoverage
	assert.Equal(t, 0.0, cov.CoveragePercentage)
	assert.Empty(t, cov.ModelsMissingRules)
}

func TestInheritanceChains(t *testing.T) {
	mod := parser.NewModule("/tmp/m", "m")

	base := parser.NewModel("app.base")
	mod.Models[base.Name] = base

	child := parser.NewModel("app.child")
	child.Inherit = []parser.ModelRef{"app.base"}
	mod.Models[child.Name] = child

	leaf := parser.NewModel("app.leaf")
	leaf.Inherit = []parser.ModelRef{"app.child", "mail.thread"}
	mod.Models[leaf.Name] = leaf

	chains := inheritanceChains(mod)

	// app.leaf branches into two chains; the dangling parent ends one of them.
	assert.Contains(t, chains, []parser.ModelRef{"app.leaf", "app.child", "app.base"})
	assert.Contains(t, chains, []parser.ModelRef{"app.leaf", "mail.thread"})

	covered := map[parser.ModelRef]bool{}
	for _, chain := range chains {
		for _, member := range chain {
			covered[member] = true
		}
	}
	for name := range mod.Models {
		assert.True(t, covered[name], "every declared model appears in a chain: %s", name)
	}
}

func TestInheritanceChains_CycleTerminates(t *testing.T) {
	mod := parser.NewModule("/tmp/m", "m")

	a := parser.NewModel("cycle.a")
	a.Inherit = []parser.ModelRef{"cycle.b"}
	mod.Models[a.Name] = a

	b := parser.NewModel("cycle.b")
	b.Inherit = []parser.ModelRef{"cycle.a"}
	mod.Models[b.Name] = b

	chains := inheritanceChains(mod)
	require.NotEmpty(t, chains)

	covered := map[parser.ModelRef]bool{}
	for _, chain := range chains {
		for _, member := range chain {
			covered[member] = true
		}
	}
	assert.True(t, covered["cycle.a"])
	assert.True(t, covered["cycle.b"])
}
