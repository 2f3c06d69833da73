package items

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Marwan-Gama/Storify-sub001/entities"
)

type ItemType string

const (
	ItemTypeFile   ItemType = "file"
	ItemTypeFolder ItemType = "folder"
)

func (t ItemType) Valid() bool {
	return t == ItemTypeFile || t == ItemTypeFolder
}

type FilePrototype struct {
	entities.Prototype

	FileID   entities.Definable[string] `bson:"fileId"`
	Owner    entities.Definable[string] `bson:"owner"`
	Name     entities.Definable[string] `bson:"name"`
	ParentID entities.Definable[string] `bson:"parentId"`
	Size     entities.Definable[int64]  `bson:"size"`
	MimeType  entities.Definable[string] `bson:"mimeType"`
	Deleted   entities.Definable[bool]   `bson:"deleted"`
	DeletedAt entities.Definable[int64]  `bson:"deletedAt"`
	Created   entities.Definable[int64]  `bson:"created"`
	Modified  entities.Definable[int64]  `bson:"modified"`
}

type File struct {
	FileID string `bson:"fileId" json:"fileId"`
	Owner  string `bson:"owner" json:"owner"`
	Name   string `bson:"name" json:"name"`
	// id of the containing folder, empty for the owner's root
	ParentID string `bson:"parentId" json:"parentId"`
	// file size in bytes
	Size     int64  `bson:"size" json:"size"`
	MimeType string `bson:"mimeType" json:"mimeType"`
	// soft-delete marker, deleted files are only visible to trash operations
	Deleted bool `bson:"deleted" json:"deleted"`
	// unix timestamps, deletedAt is zero while the file is live
	DeletedAt int64 `bson:"deletedAt" json:"deletedAt"`
	Created   int64 `bson:"created" json:"created"`
	Modified  int64 `bson:"modified" json:"modified"`
}

type FileEntity struct {
	File

	Id primitive.ObjectID `bson:"_id"`
}

type FolderPrototype struct {
	entities.Prototype

	FolderID  entities.Definable[string] `bson:"folderId"`
	Owner     entities.Definable[string] `bson:"owner"`
	Name      entities.Definable[string] `bson:"name"`
	ParentID  entities.Definable[string] `bson:"parentId"`
	Deleted   entities.Definable[bool]   `bson:"deleted"`
	DeletedAt entities.Definable[int64]  `bson:"deletedAt"`
	Created   entities.Definable[int64]  `bson:"created"`
	Modified  entities.Definable[int64]  `bson:"modified"`
}

type Folder struct {
	FolderID  string `bson:"folderId" json:"folderId"`
	Owner     string `bson:"owner" json:"owner"`
	Name      string `bson:"name" json:"name"`
	ParentID  string `bson:"parentId" json:"parentId"`
	Deleted   bool   `bson:"deleted" json:"deleted"`
	DeletedAt int64  `bson:"deletedAt" json:"deletedAt"`
	Created   int64  `bson:"created" json:"created"`
	Modified  int64  `bson:"modified" json:"modified"`
}

type FolderEntity struct {
	Folder

	Id primitive.ObjectID `bson:"_id"`
}

// Item is the type-tagged view of a File or Folder returned by identity
// resolution. Exactly one of the two types backs any given Item.
type Item struct {
	ItemID   string   `bson:"itemId" json:"itemId"`
	ItemType ItemType `bson:"itemType" json:"itemType"`
	Owner    string   `bson:"owner" json:"owner"`
	Name     string   `bson:"name" json:"name"`
	ParentID string   `bson:"parentId" json:"parentId"`
	Size      int64    `bson:"size" json:"size"`
	Deleted   bool     `bson:"deleted" json:"deleted"`
	DeletedAt int64    `bson:"deletedAt" json:"deletedAt"`
}

func (f *File) ToItem() *Item {
	return &Item{
		ItemID:    f.FileID,
		ItemType:  ItemTypeFile,
		Owner:     f.Owner,
		Name:      f.Name,
		ParentID:  f.ParentID,
		Size:      f.Size,
		Deleted:   f.Deleted,
		DeletedAt: f.DeletedAt,
	}
}

func (f *Folder) ToItem() *Item {
	return &Item{
		ItemID:    f.FolderID,
		ItemType:  ItemTypeFolder,
		Owner:     f.Owner,
		Name:      f.Name,
		ParentID:  f.ParentID,
		Deleted:   f.Deleted,
		DeletedAt: f.DeletedAt,
	}
}

func (f *File) ToPrototype(proto *FilePrototype) {
	proto.FileID.Set(f.FileID)
	proto.Owner.Set(f.Owner)
	proto.Name.Set(f.Name)
	proto.ParentID.Set(f.ParentID)
	proto.Size.Set(f.Size)
	proto.MimeType.Set(f.MimeType)
	proto.Deleted.Set(f.Deleted)
	proto.DeletedAt.Set(f.DeletedAt)
	proto.Created.Set(f.Created)
	proto.Modified.Set(f.Modified)
}

func (f *Folder) ToPrototype(proto *FolderPrototype) {
	proto.FolderID.Set(f.FolderID)
	proto.Owner.Set(f.Owner)
	proto.Name.Set(f.Name)
	proto.ParentID.Set(f.ParentID)
	proto.Deleted.Set(f.Deleted)
	proto.DeletedAt.Set(f.DeletedAt)
	proto.Created.Set(f.Created)
	proto.Modified.Set(f.Modified)
}
