package router

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRoutes(t *testing.T) {
	r := Default()

	cases := map[Family]Store{
		FamilyUsers:     StorePrimary,
		FamilyResumes:   StorePrimary,
		FamilyJobs:      StorePrimary,
		FamilyAnalytics: StoreSecondary,
		FamilyArtifacts: StoreDocument,
	}
	for f, want := range cases {
		read, err := r.ForRead(f)
		require.NoError(t, err)
		write, err := r.ForWrite(f)
		require.NoError(t, err)
		assert.Equal(t, want, read, f)
		assert.Equal(t, read, write, f)
	}
}

func TestUnknownFamily(t *testing.T) {
	_, err := Default().ForRead("billing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownFamily))
}

func TestAllowRelation(t *testing.T) {
	r := Default()

	assert.True(t, r.AllowRelation(FamilyResumes, FamilyResumes))
	assert.True(t, r.AllowRelation(FamilyArtifacts, FamilyArtifacts))
	assert.True(t, r.AllowRelation(FamilyResumes, FamilyUsers))
	assert.True(t, r.AllowRelation(FamilyResumes, FamilyAnalytics))
	assert.False(t, r.AllowRelation(FamilyResumes, FamilyArtifacts))
	assert.False(t, r.AllowRelation(FamilyArtifacts, FamilyAnalytics))
	assert.False(t, r.AllowRelation(FamilyResumes, "billing"))
}

func TestAllowMigrate(t *testing.T) {
	r := Default()

	assert.True(t, r.AllowMigrate(StorePrimary, FamilyResumes))
	assert.False(t, r.AllowMigrate(StoreSecondary, FamilyResumes))
	assert.True(t, r.AllowMigrate(StoreSecondary, FamilyAnalytics))
	assert.False(t, r.AllowMigrate(StorePrimary, FamilyAnalytics))
	assert.True(t, r.AllowMigrate(StoreDocument, FamilyArtifacts))
	assert.False(t, r.AllowMigrate(StorePrimary, "billing"))
}

func TestNewRejectsUnknownStore(t *testing.T) {
	_, err := New(map[Family]Store{FamilyResumes: "replica"}, DefaultStores())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown store "replica"`)
}

func TestNewRejectsEmptyTable(t *testing.T) {
	_, err := New(nil, DefaultStores())
	require.Error(t, err)
}

func TestFamiliesSorted(t *testing.T) {
	r := Default()
	assert.Equal(t, []Family{FamilyAnalytics}, r.Families(StoreSecondary))
	primary := r.Families(StorePrimary)
	require.Len(t, primary, 8)
	assert.Equal(t, FamilyAdmin, primary[0])
}
