//go:build integration

package integration

import (
	"net/http"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"ejeapi/pkg/model"
	"ejeapi/test/integration/testutil"
)

const causasPath = "/api/causas-eje"

type createOrUpdateResponse struct {
	Created bool        `json:"created"`
	Causa   model.Causa `json:"causa"`
}

func TestCausas_CreateThenUpdateByCuij(t *testing.T) {
	env := testutil.NewTestEnv()
	mongo, client := env.Setup(t)
	defer env.Cleanup(t, mongo)

	input := testutil.ValidCausaInput("J-01-00012345-6/2024-0", 12345, 2024)

	resp := client.Do(t, http.MethodPost, causasPath, input)
	testutil.AssertStatusCode(t, resp, http.StatusCreated)
	var first createOrUpdateResponse
	testutil.DecodeData(t, resp, &first)
	if !first.Created || first.Causa.ID.IsZero() {
		t.Fatalf("expected a created causa, got %+v", first)
	}

	estado := "ARCHIVADO"
	input.Estado = &estado
	resp = client.Do(t, http.MethodPost, causasPath, input)
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	var second createOrUpdateResponse
	testutil.DecodeData(t, resp, &second)
	if second.Created {
		t.Error("second post should update the existing causa")
	}
	if second.Causa.ID != first.Causa.ID {
		t.Errorf("expected same id %s, got %s", first.Causa.ID.Hex(), second.Causa.ID.Hex())
	}
	if got := mongo.CountCausas(t); got != 1 {
		t.Errorf("expected 1 causa in DB, got %d", got)
	}
	if stored := mongo.FindCausa(t, first.Causa.ID); stored.Estado != "ARCHIVADO" {
		t.Errorf("expected estado ARCHIVADO, got %q", stored.Estado)
	}
}

func TestCausas_Lookups(t *testing.T) {
	env := testutil.NewTestEnv()
	mongo, client := env.Setup(t)
	defer env.Cleanup(t, mongo)

	resp := client.Do(t, http.MethodPost, causasPath, testutil.ValidCausaInput("J-01-00000777-1/2023-0", 777, 2023))
	testutil.AssertStatusCode(t, resp, http.StatusCreated)
	var created createOrUpdateResponse
	testutil.DecodeData(t, resp, &created)

	tests := []struct {
		name string
		path string
	}{
		{name: "by id", path: causasPath + "/id/" + created.Causa.ID.Hex()},
		{name: "by numero and anio", path: causasPath + "/777/2023"},
		{name: "by cuij with slash", path: causasPath + "/cuij/J-01-00000777-1/2023-0"},
		{name: "by escaped cuij", path: causasPath + "/cuij/J-01-00000777-1%2F2023-0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := client.Do(t, http.MethodGet, tt.path, nil)
			testutil.AssertStatusCode(t, resp, http.StatusOK)
			var causa model.Causa
			testutil.DecodeData(t, resp, &causa)
			if causa.ID != created.Causa.ID {
				t.Errorf("expected %s, got %s", created.Causa.ID.Hex(), causa.ID.Hex())
			}
		})
	}

	resp = client.Do(t, http.MethodGet, causasPath+"/id/"+primitive.NewObjectID().Hex(), nil)
	testutil.AssertStatusCode(t, resp, http.StatusNotFound)
}

func TestCausas_SearchPaginates(t *testing.T) {
	env := testutil.NewTestEnv()
	mongo, client := env.Setup(t)
	defer env.Cleanup(t, mongo)

	for i, cuij := range []string{"J-01-1/2022-0", "J-01-2/2022-0", "J-01-3/2022-0"} {
		resp := client.Do(t, http.MethodPost, causasPath, testutil.ValidCausaInput(cuij, i+1, 2022))
		testutil.AssertStatusCode(t, resp, http.StatusCreated)
	}

	resp := client.Do(t, http.MethodGet, causasPath+"/buscar?anio=2022&limit=2&sortBy=numero&sortOrder=asc", nil)
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	var page struct {
		Data       []model.Causa `json:"data"`
		Pagination struct {
			Total       int64 `json:"total"`
			TotalPages  int   `json:"totalPages"`
			HasNextPage bool  `json:"hasNextPage"`
		} `json:"pagination"`
	}
	if err := resp.DecodeJSON(&page); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(page.Data) != 2 || page.Pagination.Total != 3 || page.Pagination.TotalPages != 2 || !page.Pagination.HasNextPage {
		t.Fatalf("unexpected page: %+v", page)
	}
	if page.Data[0].Numero != 1 || page.Data[1].Numero != 2 {
		t.Errorf("expected numero ascending, got %d, %d", page.Data[0].Numero, page.Data[1].Numero)
	}
}

func TestCausas_AssociateFolderCreatesPendingCausa(t *testing.T) {
	env := testutil.NewTestEnv()
	mongo, client := env.Setup(t)
	defer env.Cleanup(t, mongo)

	folderID := primitive.NewObjectID()
	req := model.FolderAssociation{
		Cuij:       "J-02-00004444-4/2021-0",
		FolderID:   folderID.Hex(),
		UserID:     primitive.NewObjectID().Hex(),
		SearchTerm: "4444/2021",
	}

	resp := client.Do(t, http.MethodPost, "/api/causas-eje-service/associate-folder", req)
	testutil.AssertStatusCode(t, resp, http.StatusCreated)
	var result model.FolderAssociationResult
	testutil.DecodeData(t, resp, &result)
	if !result.Created {
		t.Fatal("expected a pending causa to be created")
	}

	resp = client.Do(t, http.MethodGet, "/api/causas-eje-service/by-folder/"+folderID.Hex(), nil)
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	var causa model.Causa
	testutil.DecodeData(t, resp, &causa)
	if causa.Cuij != req.Cuij || causa.Numero != 4444 || causa.Anio != 2021 {
		t.Errorf("unexpected pending causa: %+v", causa)
	}

	resp = client.Do(t, http.MethodPost, "/api/causas-eje-service/associate-folder", req)
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	if got := mongo.CountCausas(t); got != 1 {
		t.Errorf("re-association must not create another causa, got %d", got)
	}
}

// Requires a replica set: pivot resolution runs in a transaction.
func TestCausas_ResolvePivot(t *testing.T) {
	env := testutil.NewTestEnv()
	mongo, client := env.Setup(t)
	defer env.Cleanup(t, mongo)

	folderID, userID := primitive.NewObjectID(), primitive.NewObjectID()
	pivotID := mongo.InsertCausa(t, testutil.PivotCausa("555/2020", folderID, userID))

	resp := client.Do(t, http.MethodPost, causasPath, testutil.ValidCausaInput("J-03-00000555-5/2020-0", 555, 2020))
	testutil.AssertStatusCode(t, resp, http.StatusCreated)
	var target createOrUpdateResponse
	testutil.DecodeData(t, resp, &target)

	body := model.ResolvePivotRequest{TargetCausaID: target.Causa.ID.Hex()}
	resp = client.Do(t, http.MethodPost, causasPath+"/"+pivotID.Hex()+"/resolve", body)
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	var result model.ResolvePivotResult
	testutil.DecodeData(t, resp, &result)
	if result.FoldersMoved != 1 || result.UsersMoved != 1 || result.PreferencesMerged != 1 {
		t.Errorf("unexpected result: %+v", result)
	}

	merged := mongo.FindCausa(t, target.Causa.ID)
	if len(merged.FolderIDs) != 1 || merged.FolderIDs[0] != folderID {
		t.Errorf("expected folder to move to target, got %v", merged.FolderIDs)
	}
	pivot := mongo.FindCausa(t, pivotID)
	if !pivot.Resolved || pivot.ResolvedTo == nil || *pivot.ResolvedTo != target.Causa.ID {
		t.Errorf("expected pivot resolved to target, got %+v", pivot)
	}

	resp = client.Do(t, http.MethodPost, causasPath+"/"+pivotID.Hex()+"/resolve", body)
	testutil.AssertStatusCode(t, resp, http.StatusConflict)
}
