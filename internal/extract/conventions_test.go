package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sparklepop/Code-Project-Review/internal/classify"
)

func TestConventions_Rails(t *testing.T) {
	c := &Conventions{}
	res := run(t, c, Input{Source: []classify.File{
		file("app/models/user.rb", "class User < ApplicationRecord", "end"),
		file("app/models/report.rb", "class Report", "end"),
		file("app/controllers/users_controller.rb",
			"class UsersController < ApplicationController",
			"  def create",
			"    @user = User.new(params[:user])",
			"  end",
			"end",
		),
	}})

	assert.Equal(t, 3.0, res.Metric("followed"))
	assert.Equal(t, 2.0, res.Metric("violated"))
	assert.Equal(t, 0.6, res.Metric("adherence_ratio"))
	assert.Equal(t, 2, res.Count("convention_violation"))
}

func TestConventions_Go(t *testing.T) {
	c := &Conventions{}
	res := run(t, c, Input{Source: []classify.File{file("store/store.go",
		"package store",
		"",
		"func Open(p string) (*DB, error) {",
		"\tdb, err := sql.Open(\"sqlite\", p)",
		"\tif err != nil {",
		"\t\treturn nil, err",
		"\t}",
		"\treturn &DB{db}, nil",
		"}",
	)}})

	assert.Empty(t, res.Issues)
	assert.Equal(t, 2, len(res.Good))
	assert.Equal(t, 1.0, res.Metric("adherence_ratio"))
}

func TestConventions_NothingApplicable(t *testing.T) {
	c := &Conventions{}
	res := run(t, c, Input{Source: []classify.File{file("lib/util.rb", "def x", "end")}})
	assert.Equal(t, 0.0, res.Metric("applicable"))
	assert.Empty(t, res.Issues)
}
