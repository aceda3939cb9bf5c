package store

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"anefwatch/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sheet = "\ufeff웃 Client Name,Identifiant,Mot_de_passe,Email,Mobile,Dossier\n" +
	"Awa Diallo,7512345678,s3cret!,awa@example.test,+33612345678,TS-1\n" +
	"Karim B,nan,,karim@example.test,,TS-2\n" +
	"\"Li, Wei\",7598765432,\"pa,ss\",,+33700000000,TS-3\n"

func TestReadCSV_Records(t *testing.T) {
	s, err := ReadCSV(strings.NewReader(sheet), DefaultColumns())
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())

	recs := s.Records()
	assert.Equal(t, types.CredentialRecord{
		AccountID:   "0",
		DisplayName: "Awa Diallo",
		Username:    "7512345678",
		Password:    "s3cret!",
		Email:       "awa@example.test",
		Phone:       "+33612345678",
		Row:         0,
	}, recs[0])
	assert.False(t, recs[1].Complete(), "nan placeholder reads as empty")
	assert.Equal(t, "Li, Wei", recs[2].DisplayName)
	assert.Equal(t, "pa,ss", recs[2].Password)
	assert.Equal(t, "2", recs[2].AccountID)
}

func TestReadCSV_MissingCredentialColumns(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("Nom,Email\nA,a@x\n"), DefaultColumns())
	assert.ErrorContains(t, err, "Identifiant")

	_, err = ReadCSV(strings.NewReader(""), DefaultColumns())
	assert.Error(t, err)
}

func TestRecordStore_SaveKeepsColumns(t *testing.T) {
	s, err := ReadCSV(strings.NewReader(sheet), DefaultColumns())
	require.NoError(t, err)

	recs := s.Records()
	s.SetStatus(recs[0], "")
	s.SetStatus(recs[2], types.InvalidCredentials().Message())
	s.SetStatus(types.CredentialRecord{Row: 99}, "ignored")

	path := filepath.Join(t.TempDir(), "out", "clients_UPDATED.csv")
	require.NoError(t, s.Save(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 4)
	assert.Equal(t, []string{"웃 Client Name", "Identifiant", "Mot_de_passe", "Email", "Mobile", "Dossier", "Commentaire robot"}, rows[0])
	assert.Equal(t, "TS-3", rows[3][5])
	assert.Equal(t, "", rows[1][6])
	assert.Equal(t, "Erreur de connexion - Identifiants incorrects", rows[3][6])
	assert.Equal(t, "nan", rows[2][1], "unrelated cells are written back untouched")
}

func TestRecordStore_ExistingStatusColumnIsReused(t *testing.T) {
	in := "Identifiant,Mot_de_passe,Commentaire robot\nu1,p1,ancien message\n"
	s, err := ReadCSV(strings.NewReader(in), DefaultColumns())
	require.NoError(t, err)

	assert.Equal(t, "ancien message", s.Status(0))
	s.SetStatus(s.Records()[0], "")
	assert.Equal(t, "", s.Status(0))
}

func TestUpdatedPath(t *testing.T) {
	assert.Equal(t, filepath.Join("results", "clients_UPDATED.csv"), UpdatedPath("/app/data/clients.csv", "results"))
}

func TestWriteReport(t *testing.T) {
	attempts := []types.Attempt{
		{
			Record:  types.CredentialRecord{DisplayName: "Awa", Username: "u1", Password: "never-written"},
			Outcome: types.AuthenticatedWithNotification("Nouvelle pièce"),
			Message: "Connexion réussie",
		},
		{
			Record:  types.CredentialRecord{DisplayName: "Karim", Username: "u2", Password: "never-written"},
			Outcome: types.PasswordResetRequired(),
			Message: "Mise à jour du mot de passe requise",
		},
	}
	path := filepath.Join(t.TempDir(), ReportFile)
	require.NoError(t, WriteReport(path, attempts))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "never-written")

	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, reportHeader, rows[0])
	assert.Equal(t, []string{"Awa", "u1", "true", "OUI", "Nouvelle pièce", "Connexion réussie"}, rows[1])
	assert.Equal(t, []string{"Karim", "u2", "false", "UPDATE_PASSWORD", "", "Mise à jour du mot de passe requise"}, rows[2])
}
