package items

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func treeLookup(folders map[string]*Folder) folderLookup {
	return func(ctx context.Context, folderId string) (*Folder, error) {
		return folders[folderId], nil
	}
}

func TestMoveToRoot(t *testing.T) {
	lookup := treeLookup(map[string]*Folder{
		"a": {FolderID: "a"},
	})

	err := checkMove(context.Background(), "a", "", lookup)

	assert.Nil(t, err)
}

func TestMoveToSibling(t *testing.T) {
	lookup := treeLookup(map[string]*Folder{
		"root": {FolderID: "root"},
		"a":    {FolderID: "a", ParentID: "root"},
		"b":    {FolderID: "b", ParentID: "root"},
	})

	err := checkMove(context.Background(), "a", "b", lookup)

	assert.Nil(t, err)
}

func TestMoveIntoItself(t *testing.T) {
	lookup := treeLookup(map[string]*Folder{
		"a": {FolderID: "a"},
	})

	err := checkMove(context.Background(), "a", "a", lookup)

	assert.ErrorIs(t, err, ErrCycle)
}

func TestMoveIntoOwnChild(t *testing.T) {
	lookup := treeLookup(map[string]*Folder{
		"a": {FolderID: "a"},
		"b": {FolderID: "b", ParentID: "a"},
		"c": {FolderID: "c", ParentID: "b"},
	})

	err := checkMove(context.Background(), "a", "c", lookup)

	assert.ErrorIs(t, err, ErrCycle)
}

func TestMoveToMissingParent(t *testing.T) {
	lookup := treeLookup(map[string]*Folder{
		"a": {FolderID: "a"},
	})

	err := checkMove(context.Background(), "a", "nope", lookup)

	assert.ErrorIs(t, err, ErrParentNotFound)
}

func TestMoveBoundedDepth(t *testing.T) {
	// corrupted tree: folder is its own parent
	lookup := treeLookup(map[string]*Folder{
		"loop": {FolderID: "loop", ParentID: "loop"},
	})

	err := checkMove(context.Background(), "a", "loop", lookup)

	assert.NotNil(t, err)
}
