// Copyright © 2025 Marwan Gama

// This file is part of Storify <https://github.com/Marwan-Gama/Storify>.

// Storify is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License
// as published by the Free Software Foundation,
// either version 3 of the License, or (at your option)
// any later version.

// Storify is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public License
// along with Storify.  If not, see <http://www.gnu.org/licenses/>.

package shares_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/testcontainers/testcontainers-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/fx/fxtest"

	"github.com/Marwan-Gama/Storify-sub001/access"
	"github.com/Marwan-Gama/Storify-sub001/entities"
	"github.com/Marwan-Gama/Storify-sub001/items/items"
	"github.com/Marwan-Gama/Storify-sub001/logging"
	"github.com/Marwan-Gama/Storify-sub001/messaging"
	"github.com/Marwan-Gama/Storify-sub001/mongodb"
	"github.com/Marwan-Gama/Storify-sub001/shares/shares"
	"github.com/Marwan-Gama/Storify-sub001/tracing"
)

var natsServer *server.Server
var mongoContainer testcontainers.Container
var mongoUrl string
var sharesMigrations shares.Migrations
var itemsMigrations items.Migrations

func TestMain(m *testing.M) {
	setup()
	code := m.Run()
	shutdown()
	os.Exit(code)
}

func setup() {
	storeDir, err := os.MkdirTemp("", "shares_test_js")
	if err != nil {
		panic(err)
	}
	opts := &server.Options{
		JetStream: true,
		StoreDir:  storeDir,
	}
	natsServer, err = server.NewServer(opts)
	if err != nil {
		panic(err)
	}

	natsServer.Start()

	req := testcontainers.ContainerRequest{
		Image:        "mongo:8",
		ExposedPorts: []string{"27017/tcp"},
	}

	mongoContainer, err = testcontainers.GenericContainer(context.Background(), testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		panic(err)
	}

	endpoint, err := mongoContainer.Endpoint(context.Background(), "")
	if err != nil {
		panic(err)
	}

	mongoUrl = fmt.Sprintf("mongodb://%s/", endpoint)

	v := viper.New()
	v.Set("mongo.url", mongoUrl)
	v.Set("mongo.db", "shares_test")

	sharesMigrations, err = shares.NewMigrations(v)
	if err != nil {
		panic(err)
	}

	v.Set("mongo.db", "items_test")
	itemsMigrations, err = items.NewMigrations(v)
	if err != nil {
		panic(err)
	}
}

func shutdown() {
	if natsServer != nil {
		natsServer.Shutdown()
		natsServer = nil
	}
	if mongoContainer != nil {
		testcontainers.TerminateContainer(mongoContainer)
	}
}

func getDb(t *testing.T, dbName string) *mongo.Database {
	v := viper.New()
	v.Set("mongo.url", mongoUrl)
	v.Set("mongo.db", dbName)

	res, err := mongodb.NewClient(mongodb.ClientParams{
		Viper: v,
		Lc:    fxtest.NewLifecycle(t),
	})
	if err != nil {
		t.Fatal(err)
	}

	return res.Client.Database(dbName)
}

func getLogger() *logging.Logger {
	logger := logging.New(logging.Params{})
	logger.SetLevel(slog.LevelDebug)
	return logger
}

func getSharesProvider(t *testing.T) (*shares.SharesProvider, *nats.Conn) {
	nc, err := nats.Connect(natsServer.ClientURL())
	if err != nil {
		t.Fatal(err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		t.Fatal(err)
	}

	res, err := shares.New(shares.Params{
		Nc:      nc,
		Js:      js,
		Logger:  getLogger(),
		Tracing: tracing.NewNoopTracing(),
		Db:      getDb(t, "shares_test"),
		Mig:     sharesMigrations,
	})
	if err != nil {
		t.Fatal(err)
	}

	return res.SharesProvider, nc
}

func getItemsProvider(t *testing.T) (*items.ItemsProvider, *nats.Conn) {
	nc, err := nats.Connect(natsServer.ClientURL())
	if err != nil {
		t.Fatal(err)
	}

	res, err := items.New(items.Params{
		Nc:      nc,
		Logger:  getLogger(),
		Tracing: tracing.NewNoopTracing(),
		Db:      getDb(t, "items_test"),
		Mig:     itemsMigrations,
	})
	if err != nil {
		t.Fatal(err)
	}

	return res.ItemsProvider, nc
}

func getAccessProvider(t *testing.T) (*access.AccessProvider, *nats.Conn) {
	nc, err := nats.Connect(natsServer.ClientURL())
	if err != nil {
		t.Fatal(err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		t.Fatal(err)
	}

	res, err := access.New(access.Params{
		Nc:      nc,
		Js:      js,
		Logger:  getLogger(),
		Tracing: tracing.NewNoopTracing(),
		Db:      getDb(t, "shares_test"),
	})
	if err != nil {
		t.Fatal(err)
	}

	return res.AccessProvider, nc
}

func createFile(t *testing.T, nc *nats.Conn, owner string, name string) items.File {
	req := items.ItemCrudRequest{
		Operation: "CREATE_FILE",
		File:      entities.MakePrototype(&items.FilePrototype{}),
	}
	req.File.Owner.Set(owner)
	req.File.Name.Set(name)
	req.File.Size.Set(1024)
	req.File.MimeType.Set("application/pdf")

	res := items.ItemCrudResponse{}
	err := messaging.Request(context.Background(), nc, items.ItemCrudTopic, messaging.Json(&req), messaging.Json(&res))
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "", res.Error)
	assert.Equal(t, 1, len(res.Files))

	return res.Files[0]
}

func TestShareCrud(t *testing.T) {
	sharesProvider, nc := getSharesProvider(t)
	itemsProvider, _ := getItemsProvider(t)

	sharesProvider.Start()
	defer sharesProvider.Stop()
	itemsProvider.Start()
	defer itemsProvider.Stop()

	file := createFile(t, nc, "alice", "report.pdf")

	// CREATE for an item the owner does not own -> forbidden

	req := shares.ShareCrudRequest{
		Operation: "CREATE",
		Share:     entities.MakePrototype(&shares.SharePrototype{}),
	}
	req.Share.Owner.Set("mallory")
	req.Share.ItemID.Set(file.FileID)
	req.Share.ItemType.Set(items.ItemTypeFile)

	res := shares.ShareCrudResponse{}
	err := messaging.Request(context.Background(), nc, shares.ShareCrudTopic, messaging.Json(&req), messaging.Json(&res))
	if err != nil {
		t.Fatal(err)
	}

	assert.NotEqual(t, "", res.Error)
	assert.Equal(t, shares.ReasonForbidden, res.Reason)

	// CREATE for a missing item -> not found

	req = shares.ShareCrudRequest{
		Operation: "CREATE",
		Share:     entities.MakePrototype(&shares.SharePrototype{}),
	}
	req.Share.Owner.Set("alice")
	req.Share.ItemID.Set("no-such-item")
	req.Share.ItemType.Set(items.ItemTypeFile)

	err = messaging.Request(context.Background(), nc, shares.ShareCrudTopic, messaging.Json(&req), messaging.Json(&res))
	if err != nil {
		t.Fatal(err)
	}

	assert.NotEqual(t, "", res.Error)
	assert.Equal(t, shares.ReasonNotFound, res.Reason)

	// CREATE public share

	req = shares.ShareCrudRequest{
		Operation: "CREATE",
		Share:     entities.MakePrototype(&shares.SharePrototype{}),
		Password:  "secret",
	}
	req.Share.Owner.Set("alice")
	req.Share.ItemID.Set(file.FileID)
	req.Share.ItemType.Set(items.ItemTypeFile)
	req.Share.Permission.Set(shares.PermissionEdit)
	req.Share.IsPublic.Set(true)
	req.Share.NotifyOnAccess.Set(true)

	err = messaging.Request(context.Background(), nc, shares.ShareCrudTopic, messaging.Json(&req), messaging.Json(&res))
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "", res.Error)
	assert.Equal(t, 1, len(res.Share))
	assert.NotEqual(t, "", res.Share[0].ShareID)
	assert.Equal(t, "alice", res.Share[0].Owner)
	assert.Equal(t, shares.PermissionEdit, res.Share[0].Permission)
	assert.True(t, res.Share[0].IsPublic)
	assert.NotEqual(t, "", res.Share[0].PublicLink)
	assert.True(t, res.Share[0].IsActive)
	assert.True(t, res.Share[0].AllowDownload)
	assert.True(t, res.Share[0].AllowEdit)
	assert.Equal(t, int64(0), res.Share[0].AccessCount)

	shareId := res.Share[0].ShareID
	link := res.Share[0].PublicLink

	// resolve by link

	resolveReq := shares.ShareResolveRequest{
		PublicLink: link,
	}
	resolveRes := shares.ShareResolveResponse{}
	err = messaging.Request(context.Background(), nc, shares.ShareResolveTopic, messaging.Json(&resolveReq), messaging.Json(&resolveRes))
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "", resolveRes.Error)
	assert.NotNil(t, resolveRes.Share)
	assert.Equal(t, shareId, resolveRes.Share.ShareID)

	// resolve unknown link -> empty response

	resolveReq = shares.ShareResolveRequest{
		PublicLink: "no-such-token",
	}
	err = messaging.Request(context.Background(), nc, shares.ShareResolveTopic, messaging.Json(&resolveReq), messaging.Json(&resolveRes))
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "", resolveRes.Error)
	assert.Nil(t, resolveRes.Share)

	// UPDATE deactivate

	req = shares.ShareCrudRequest{
		Operation: "UPDATE",
		Share:     entities.MakePrototype(&shares.SharePrototype{}),
	}
	req.Share.ShareID.Set(shareId)
	req.Share.IsActive.Set(false)

	err = messaging.Request(context.Background(), nc, shares.ShareCrudTopic, messaging.Json(&req), messaging.Json(&res))
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "", res.Error)
	assert.Equal(t, 1, len(res.Share))
	assert.False(t, res.Share[0].IsActive)
	// the rest of the share is untouched
	assert.Equal(t, link, res.Share[0].PublicLink)

	// REGENERATE_LINK

	req = shares.ShareCrudRequest{
		Operation: "REGENERATE_LINK",
		Share:     entities.MakePrototype(&shares.SharePrototype{}),
	}
	req.Share.ShareID.Set(shareId)

	err = messaging.Request(context.Background(), nc, shares.ShareCrudTopic, messaging.Json(&req), messaging.Json(&res))
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "", res.Error)
	assert.Equal(t, 1, len(res.Share))
	assert.NotEqual(t, link, res.Share[0].PublicLink)
	assert.NotEqual(t, "", res.Share[0].PublicLink)

	// READ by owner

	req = shares.ShareCrudRequest{
		Operation: "READ",
		Share:     entities.MakePrototype(&shares.SharePrototype{}),
	}
	req.Share.Owner.Set("alice")

	err = messaging.Request(context.Background(), nc, shares.ShareCrudTopic, messaging.Json(&req), messaging.Json(&res))
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "", res.Error)
	assert.Equal(t, 1, len(res.Share))

	// DELETE

	req = shares.ShareCrudRequest{
		Operation: "DELETE",
		Share:     entities.MakePrototype(&shares.SharePrototype{}),
	}
	req.Share.ShareID.Set(shareId)

	err = messaging.Request(context.Background(), nc, shares.ShareCrudTopic, messaging.Json(&req), messaging.Json(&res))
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "", res.Error)

	// READ again -> expect empty

	req = shares.ShareCrudRequest{
		Operation: "READ",
		Share:     entities.MakePrototype(&shares.SharePrototype{}),
	}
	req.Share.ShareID.Set(shareId)

	err = messaging.Request(context.Background(), nc, shares.ShareCrudTopic, messaging.Json(&req), messaging.Json(&res))
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "", res.Error)
	assert.Equal(t, 0, len(res.Share))
}

func TestShareUpdateKeepsBindingAndLink(t *testing.T) {
	sharesProvider, nc := getSharesProvider(t)
	itemsProvider, _ := getItemsProvider(t)

	sharesProvider.Start()
	defer sharesProvider.Stop()
	itemsProvider.Start()
	defer itemsProvider.Stop()

	ownFile := createFile(t, nc, "alice", "mine.txt")
	foreignFile := createFile(t, nc, "carol", "theirs.txt")

	req := shares.ShareCrudRequest{
		Operation: "CREATE",
		Share:     entities.MakePrototype(&shares.SharePrototype{}),
	}
	req.Share.Owner.Set("alice")
	req.Share.ItemID.Set(ownFile.FileID)
	req.Share.ItemType.Set(items.ItemTypeFile)
	req.Share.Permission.Set(shares.PermissionView)
	req.Share.IsPublic.Set(true)

	res := shares.ShareCrudResponse{}
	err := messaging.Request(context.Background(), nc, shares.ShareCrudTopic, messaging.Json(&req), messaging.Json(&res))
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "", res.Error)
	shareId := res.Share[0].ShareID
	link := res.Share[0].PublicLink

	// an UPDATE naming somebody else's item and a chosen token must not
	// repoint the share or replace its minted link

	req = shares.ShareCrudRequest{
		Operation: "UPDATE",
		Share:     entities.MakePrototype(&shares.SharePrototype{}),
	}
	req.Share.ShareID.Set(shareId)
	req.Share.ItemID.Set(foreignFile.FileID)
	req.Share.ItemType.Set(items.ItemTypeFile)
	req.Share.PublicLink.Set("chosen-token")
	req.Share.Permission.Set(shares.PermissionDownload)

	err = messaging.Request(context.Background(), nc, shares.ShareCrudTopic, messaging.Json(&req), messaging.Json(&res))
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "", res.Error)
	assert.Equal(t, 1, len(res.Share))
	// the legitimate field change applies
	assert.Equal(t, shares.PermissionDownload, res.Share[0].Permission)
	// the binding and link do not
	assert.Equal(t, ownFile.FileID, res.Share[0].ItemID)
	assert.Equal(t, link, res.Share[0].PublicLink)

	resolveReq := shares.ShareResolveRequest{
		PublicLink: "chosen-token",
	}
	resolveRes := shares.ShareResolveResponse{}
	err = messaging.Request(context.Background(), nc, shares.ShareResolveTopic, messaging.Json(&resolveReq), messaging.Json(&resolveRes))
	if err != nil {
		t.Fatal(err)
	}
	assert.Nil(t, resolveRes.Share)
}

func TestCreateIgnoresClientSuppliedLink(t *testing.T) {
	sharesProvider, nc := getSharesProvider(t)
	itemsProvider, _ := getItemsProvider(t)

	sharesProvider.Start()
	defer sharesProvider.Stop()
	itemsProvider.Start()
	defer itemsProvider.Stop()

	file := createFile(t, nc, "alice", "draft.txt")

	// a non-public share smuggling in a token must not become link
	// reachable

	req := shares.ShareCrudRequest{
		Operation: "CREATE",
		Share:     entities.MakePrototype(&shares.SharePrototype{}),
	}
	req.Share.Owner.Set("alice")
	req.Share.ItemID.Set(file.FileID)
	req.Share.ItemType.Set(items.ItemTypeFile)
	req.Share.SharedWithID.Set("bob")
	req.Share.PublicLink.Set("guessable-token")

	res := shares.ShareCrudResponse{}
	err := messaging.Request(context.Background(), nc, shares.ShareCrudTopic, messaging.Json(&req), messaging.Json(&res))
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "", res.Error)
	assert.Equal(t, 1, len(res.Share))
	assert.False(t, res.Share[0].IsPublic)
	assert.Equal(t, "", res.Share[0].PublicLink)

	// a public share gets a minted token, never the supplied one

	req = shares.ShareCrudRequest{
		Operation: "CREATE",
		Share:     entities.MakePrototype(&shares.SharePrototype{}),
	}
	req.Share.Owner.Set("alice")
	req.Share.ItemID.Set(file.FileID)
	req.Share.ItemType.Set(items.ItemTypeFile)
	req.Share.IsPublic.Set(true)
	req.Share.PublicLink.Set("guessable-token")

	err = messaging.Request(context.Background(), nc, shares.ShareCrudTopic, messaging.Json(&req), messaging.Json(&res))
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "", res.Error)
	assert.Equal(t, 1, len(res.Share))
	assert.NotEqual(t, "", res.Share[0].PublicLink)
	assert.NotEqual(t, "guessable-token", res.Share[0].PublicLink)
}

func TestPublicLinkConflict(t *testing.T) {
	sharesProvider, nc := getSharesProvider(t)
	itemsProvider, _ := getItemsProvider(t)

	sharesProvider.Start()
	defer sharesProvider.Stop()
	itemsProvider.Start()
	defer itemsProvider.Stop()

	// force every minted token to collide
	sharesProvider.SetLinkSource(func() (string, error) {
		return "colliding-token", nil
	})

	file := createFile(t, nc, "alice", "budget.xlsx")

	req := shares.ShareCrudRequest{
		Operation: "CREATE",
		Share:     entities.MakePrototype(&shares.SharePrototype{}),
	}
	req.Share.Owner.Set("alice")
	req.Share.ItemID.Set(file.FileID)
	req.Share.ItemType.Set(items.ItemTypeFile)
	req.Share.IsPublic.Set(true)

	res := shares.ShareCrudResponse{}
	err := messaging.Request(context.Background(), nc, shares.ShareCrudTopic, messaging.Json(&req), messaging.Json(&res))
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "", res.Error)
	assert.Equal(t, "colliding-token", res.Share[0].PublicLink)

	// the second creation hits the unique index and surfaces a conflict
	// instead of overwriting

	err = messaging.Request(context.Background(), nc, shares.ShareCrudTopic, messaging.Json(&req), messaging.Json(&res))
	if err != nil {
		t.Fatal(err)
	}

	assert.NotEqual(t, "", res.Error)
	assert.Equal(t, shares.ReasonConflict, res.Reason)

	// same for regenerating onto a taken token

	req = shares.ShareCrudRequest{
		Operation: "CREATE",
		Share:     entities.MakePrototype(&shares.SharePrototype{}),
	}
	req.Share.Owner.Set("alice")
	req.Share.ItemID.Set(file.FileID)
	req.Share.ItemType.Set(items.ItemTypeFile)
	req.Share.SharedWithID.Set("bob")

	err = messaging.Request(context.Background(), nc, shares.ShareCrudTopic, messaging.Json(&req), messaging.Json(&res))
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "", res.Error)
	shareId := res.Share[0].ShareID

	req = shares.ShareCrudRequest{
		Operation: "REGENERATE_LINK",
		Share:     entities.MakePrototype(&shares.SharePrototype{}),
	}
	req.Share.ShareID.Set(shareId)

	err = messaging.Request(context.Background(), nc, shares.ShareCrudTopic, messaging.Json(&req), messaging.Json(&res))
	if err != nil {
		t.Fatal(err)
	}

	assert.NotEqual(t, "", res.Error)
	assert.Equal(t, shares.ReasonConflict, res.Reason)
}

func TestAccessCheck(t *testing.T) {
	sharesProvider, nc := getSharesProvider(t)
	itemsProvider, _ := getItemsProvider(t)
	accessProvider, _ := getAccessProvider(t)

	sharesProvider.Start()
	defer sharesProvider.Stop()
	itemsProvider.Start()
	defer itemsProvider.Stop()
	accessProvider.Start()
	defer accessProvider.Stop()

	file := createFile(t, nc, "alice", "notes.txt")

	// owner access needs no share

	checkReq := access.AccessCheckRequest{}
	checkReq.ItemID = file.FileID
	checkReq.ItemType = items.ItemTypeFile
	checkReq.UserID = "alice"
	checkReq.Permission = shares.PermissionDownload

	checkRes := access.AccessCheckResponse{}
	err := messaging.Request(context.Background(), nc, access.AccessCheckTopic, messaging.Json(&checkReq), messaging.Json(&checkRes))
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "", checkRes.Error)
	assert.True(t, checkRes.Allowed)

	// anonymous access is forbidden

	checkReq = access.AccessCheckRequest{}
	checkReq.ItemID = file.FileID
	checkReq.ItemType = items.ItemTypeFile
	checkReq.Permission = shares.PermissionView

	err = messaging.Request(context.Background(), nc, access.AccessCheckTopic, messaging.Json(&checkReq), messaging.Json(&checkRes))
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "", checkRes.Error)
	assert.False(t, checkRes.Allowed)
	assert.Equal(t, access.ReasonForbidden, checkRes.Reason)

	// share with bob

	req := shares.ShareCrudRequest{
		Operation: "CREATE",
		Share:     entities.MakePrototype(&shares.SharePrototype{}),
	}
	req.Share.Owner.Set("alice")
	req.Share.ItemID.Set(file.FileID)
	req.Share.ItemType.Set(items.ItemTypeFile)
	req.Share.SharedWithID.Set("bob")
	req.Share.Permission.Set(shares.PermissionView)

	res := shares.ShareCrudResponse{}
	err = messaging.Request(context.Background(), nc, shares.ShareCrudTopic, messaging.Json(&req), messaging.Json(&res))
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "", res.Error)
	shareId := res.Share[0].ShareID

	// bob can view but not download

	checkReq = access.AccessCheckRequest{}
	checkReq.ItemID = file.FileID
	checkReq.ItemType = items.ItemTypeFile
	checkReq.UserID = "bob"
	checkReq.Permission = shares.PermissionView

	err = messaging.Request(context.Background(), nc, access.AccessCheckTopic, messaging.Json(&checkReq), messaging.Json(&checkRes))
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "", checkRes.Error)
	assert.True(t, checkRes.Allowed)

	checkReq.Permission = shares.PermissionDownload

	err = messaging.Request(context.Background(), nc, access.AccessCheckTopic, messaging.Json(&checkReq), messaging.Json(&checkRes))
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "", checkRes.Error)
	assert.False(t, checkRes.Allowed)
	assert.Equal(t, access.ReasonForbidden, checkRes.Reason)

	// concurrent accesses converge to the correct count

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			r := access.AccessCheckRequest{}
			r.ItemID = file.FileID
			r.ItemType = items.ItemTypeFile
			r.UserID = "bob"
			r.Permission = shares.PermissionView

			rr := access.AccessCheckResponse{}
			err := messaging.Request(context.Background(), nc, access.AccessCheckTopic, messaging.Json(&r), messaging.Json(&rr))
			assert.Nil(t, err)
			assert.True(t, rr.Allowed)
		}()
	}
	wg.Wait()

	req = shares.ShareCrudRequest{
		Operation: "READ",
		Share:     entities.MakePrototype(&shares.SharePrototype{}),
	}
	req.Share.ShareID.Set(shareId)

	err = messaging.Request(context.Background(), nc, shares.ShareCrudTopic, messaging.Json(&req), messaging.Json(&res))
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "", res.Error)
	assert.Equal(t, 1, len(res.Share))
	// 1 from bob's first view above plus n concurrent views
	assert.Equal(t, int64(n+1), res.Share[0].AccessCount)
	assert.NotEqual(t, int64(0), res.Share[0].LastAccessed)
}

func TestPublicLinkAccess(t *testing.T) {
	sharesProvider, nc := getSharesProvider(t)
	itemsProvider, _ := getItemsProvider(t)
	accessProvider, _ := getAccessProvider(t)

	sharesProvider.Start()
	defer sharesProvider.Stop()
	itemsProvider.Start()
	defer itemsProvider.Stop()
	accessProvider.Start()
	defer accessProvider.Stop()

	file := createFile(t, nc, "alice", "slides.pdf")

	req := shares.ShareCrudRequest{
		Operation: "CREATE",
		Share:     entities.MakePrototype(&shares.SharePrototype{}),
		Password:  "secret",
	}
	req.Share.Owner.Set("alice")
	req.Share.ItemID.Set(file.FileID)
	req.Share.ItemType.Set(items.ItemTypeFile)
	req.Share.Permission.Set(shares.PermissionDownload)
	req.Share.IsPublic.Set(true)
	req.Share.AllowDownload.Set(false)

	res := shares.ShareCrudResponse{}
	err := messaging.Request(context.Background(), nc, shares.ShareCrudTopic, messaging.Json(&req), messaging.Json(&res))
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "", res.Error)
	link := res.Share[0].PublicLink

	// without password

	checkReq := access.AccessCheckRequest{}
	checkReq.ItemID = file.FileID
	checkReq.ItemType = items.ItemTypeFile
	checkReq.PublicLink = link
	checkReq.Permission = shares.PermissionView

	checkRes := access.AccessCheckResponse{}
	err = messaging.Request(context.Background(), nc, access.AccessCheckTopic, messaging.Json(&checkReq), messaging.Json(&checkRes))
	if err != nil {
		t.Fatal(err)
	}

	assert.False(t, checkRes.Allowed)
	assert.Equal(t, access.ReasonPasswordRequired, checkRes.Reason)

	// wrong password

	checkReq.Password = "wrong"

	err = messaging.Request(context.Background(), nc, access.AccessCheckTopic, messaging.Json(&checkReq), messaging.Json(&checkRes))
	if err != nil {
		t.Fatal(err)
	}

	assert.False(t, checkRes.Allowed)
	assert.Equal(t, access.ReasonPasswordIncorrect, checkRes.Reason)

	// correct password

	checkReq.Password = "secret"

	err = messaging.Request(context.Background(), nc, access.AccessCheckTopic, messaging.Json(&checkReq), messaging.Json(&checkRes))
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "", checkRes.Error)
	assert.True(t, checkRes.Allowed)

	// download stays gated by the flag despite the download rank

	checkReq.Permission = shares.PermissionDownload

	err = messaging.Request(context.Background(), nc, access.AccessCheckTopic, messaging.Json(&checkReq), messaging.Json(&checkRes))
	if err != nil {
		t.Fatal(err)
	}

	assert.False(t, checkRes.Allowed)
	assert.Equal(t, access.ReasonInsufficientPermission, checkRes.Reason)

	// soft-delete the item -> the link goes dark

	delReq := items.ItemCrudRequest{
		Operation: "MARK_DELETED",
		ItemID:    file.FileID,
		ItemType:  items.ItemTypeFile,
	}
	delRes := items.ItemCrudResponse{}
	err = messaging.Request(context.Background(), nc, items.ItemCrudTopic, messaging.Json(&delReq), messaging.Json(&delRes))
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "", delRes.Error)

	checkReq.Permission = shares.PermissionView

	err = messaging.Request(context.Background(), nc, access.AccessCheckTopic, messaging.Json(&checkReq), messaging.Json(&checkRes))
	if err != nil {
		t.Fatal(err)
	}

	assert.False(t, checkRes.Allowed)
	assert.Equal(t, access.ReasonItemNotFound, checkRes.Reason)

	// the deletion timestamp is stamped on delete and cleared on restore

	itemReq := items.ItemResolveRequest{
		ItemID:         file.FileID,
		ItemType:       items.ItemTypeFile,
		IncludeDeleted: true,
	}
	itemRes := items.ItemResolveResponse{}
	err = messaging.Request(context.Background(), nc, items.ItemResolveTopic, messaging.Json(&itemReq), messaging.Json(&itemRes))
	if err != nil {
		t.Fatal(err)
	}
	assert.NotNil(t, itemRes.Item)
	assert.True(t, itemRes.Item.Deleted)
	assert.NotEqual(t, int64(0), itemRes.Item.DeletedAt)

	restoreReq := items.ItemCrudRequest{
		Operation: "RESTORE",
		ItemID:    file.FileID,
		ItemType:  items.ItemTypeFile,
	}
	restoreRes := items.ItemCrudResponse{}
	err = messaging.Request(context.Background(), nc, items.ItemCrudTopic, messaging.Json(&restoreReq), messaging.Json(&restoreRes))
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "", restoreRes.Error)
	assert.Equal(t, 1, len(restoreRes.Files))
	assert.False(t, restoreRes.Files[0].Deleted)
	assert.Equal(t, int64(0), restoreRes.Files[0].DeletedAt)
}
