package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeModelRef(t *testing.T) {
	tests := []struct {
		ref  string
		want ModelRef
	}{
		{"model_library_book", "library.book"},
		{"model_res_partner", "res.partner"},
		{"library_book", "library.book"},
		{"model_sale", "sale"},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeModelRef(tt.ref))
		})
	}
}

func TestParseAccessFile(t *testing.T) {
	path := writeFile(t, "ir.model.access.csv",
		`id,name,model_id:id,group_id:id,perm_read,perm_write,perm_create,perm_unlink
access_book,library.book.user,model_library_book,base.group_user,1,0,0,0
access_book_admin,library.book.admin,model_library_book,library.group_admin,1,1,1,1
access_open,library.tag.all,model_library_tag,,1,0,0,0
,missing.id,model_library_book,base.group_user,1,1,1,1
access_no_model,no.model,,base.group_user,1,1,1,1
`)

	mod := NewModule(t.TempDir(), "test")
	require.NoError(t, ParseAccessFile(path, mod))

	require.Len(t, mod.SecurityRules, 3, "rows without id or model are dropped")

	book := mod.SecurityRules["access_book"]
	require.NotNil(t, book)
	assert.Equal(t, ModelRef("library.book"), book.ModelID)
	assert.Equal(t, []string{"base.group_user"}, book.Groups)
	assert.True(t, book.PermRead)
	assert.False(t, book.PermWrite)
	assert.False(t, book.PermCreate)
	assert.False(t, book.PermUnlink)
	assert.Empty(t, book.DomainForce)

	admin := mod.SecurityRules["access_book_admin"]
	require.NotNil(t, admin)
	assert.True(t, admin.PermRead)
	assert.True(t, admin.PermWrite)
	assert.True(t, admin.PermCreate)
	assert.True(t, admin.PermUnlink)

	open := mod.SecurityRules["access_open"]
	require.NotNil(t, open)
	assert.Empty(t, open.Groups, "empty group cell yields an empty list")
	assert.NotNil(t, open.Groups)
}

func TestParseRuleFile(t *testing.T) {
	path := writeFile(t, "rules.xml", `<odoo>
    <record id="rule_own" model="ir.rule">
        <field name="name">Own records</field>
        <field name="model_id" ref="model_library_loan"/>
        <field name="domain_force">[('create_uid', '=', user.id)]</field>
        <field name="groups">
            <field ref="base.group_user"/>
            <field ref="library.group_librarian"/>
        </field>
    </record>
    <record id="rule_global" model="ir.rule">
        <field name="name">Everything</field>
        <field name="model_id" ref="model_library_book"/>
        <field name="domain_force">[(1, '=', 1)]</field>
    </record>
    <record id="rule_no_model" model="ir.rule">
        <field name="name">No target</field>
    </record>
</odoo>`)

	mod := NewModule(t.TempDir(), "test")
	require.NoError(t, ParseRuleFile(path, mod))

	require.Len(t, mod.SecurityRules, 2, "rule without a model reference is dropped")

	own := mod.SecurityRules["rule_own"]
	require.NotNil(t, own)
	assert.Equal(t, ModelRef("library.loan"), own.ModelID)
	assert.Equal(t, []string{"base.group_user", "library.group_librarian"}, own.Groups)
	assert.Equal(t, "[('create_uid', '=', user.id)]", own.DomainForce)
	assert.True(t, own.PermRead)
	assert.True(t, own.PermWrite)
	assert.True(t, own.PermCreate)
	assert.True(t, own.PermUnlink)

	global := mod.SecurityRules["rule_global"]
	require.NotNil(t, global)
	assert.Empty(t, global.Groups)
	assert.NotNil(t, global.Groups)
}

func TestRuleOverridesAccessRow(t *testing.T) {
	csvPath := writeFile(t, "ir.model.access.csv",
		`id,name,model_id:id,group_id:id,perm_read,perm_write,perm_create,perm_unlink
shared_id,library.book.user,model_library_book,base.group_user,1,0,0,0
`)
	rulePath := writeFile(t, "rules.xml", `<odoo>
    <record id="shared_id" model="ir.rule">
        <field name="model_id" ref="model_library_book"/>
        <field name="domain_force">[(1, '=', 1)]</field>
    </record>
</odoo>`)

	mod := NewModule(t.TempDir(), "test")
	require.NoError(t, ParseAccessFile(csvPath, mod))
	require.NoError(t, ParseRuleFile(rulePath, mod))

	require.Len(t, mod.SecurityRules, 1)
	rule := mod.SecurityRules["shared_id"]
	require.NotNil(t, rule)
	assert.True(t, rule.PermWrite, "rule loaded second wins")
	assert.Equal(t, "[(1, '=', 1)]", rule.DomainForce)
}
