package main

import (
	"flag"
	"log"
	"os"

	"felicity/internal/validation"
)

func main() {
	var baseURL string
	var jwtSecret string
	flag.StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the API to validate")
	flag.StringVar(&jwtSecret, "jwt-secret", os.Getenv("JWT_SECRET"), "JWT secret used to mint validation tokens")
	flag.Parse()

	if jwtSecret == "" {
		log.Fatal("JWT secret is required (-jwt-secret or JWT_SECRET)")
	}

	log.Printf("Starting API validation against: %s", baseURL)

	validator, err := validation.NewAPIValidator(baseURL, jwtSecret)
	if err != nil {
		log.Fatalf("Failed to build validator: %v", err)
	}
	if err := validator.ValidateAll(); err != nil {
		log.Fatalf("Validation failed: %v", err)
	}

	log.Println("Validation passed")
}
