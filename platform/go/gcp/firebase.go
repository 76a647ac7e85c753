package gcp

import (
	"context"
	"fmt"
	"log"
	"os"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

const (
	// DevCredentialsPathEnv points at a service-account JSON file for local development.
	// When unset the SDK falls back to Application Default Credentials.
	DevCredentialsPathEnv = "FIREBASE_CONFIG"
)

// GetApp creates a Firebase App instance, optionally with explicit credentials.
func GetApp(ctx context.Context, pathToJSON *string) (app *firebase.App, err error) {
	if pathToJSON != nil {
		sa := option.WithCredentialsFile(*pathToJSON)
		app, err = firebase.NewApp(ctx, nil, sa)
	} else {
		app, err = firebase.NewApp(ctx, nil)
	}

	if err != nil {
		return nil, err
	}
	return
}

// InitFirestore initializes the Firebase App and returns a Firestore client.
// The defect data layer is Firestore-only; no Auth client is created here.
func InitFirestore(ctx context.Context) (*firebase.App, *firestore.Client, error) {
	app, err := GetApp(ctx, devCredentialsPath())
	if err != nil {
		return nil, nil, fmt.Errorf("error initializing firebase app [%w]", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("error initializing firestore client [%w]", err)
	}

	return app, client, nil
}

func devCredentialsPath() *string {
	path, found := os.LookupEnv(DevCredentialsPathEnv)
	if !found {
		return nil
	}
	log.Printf("Loading credentials at [%s]", path)
	return &path
}
