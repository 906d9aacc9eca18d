package main

import (
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/vistacks/kiosk-agent/internal/utils"
)

func main() {
	fmt.Println("===========================================")
	fmt.Println("Admin PIN Generator for Vistacks Kiosk")
	fmt.Println("===========================================")
	fmt.Println()

	pin := ""
	if len(os.Args) > 1 {
		pin = os.Args[1]
	} else {
		generated, err := utils.GeneratePIN(6)
		if err != nil {
			log.Fatalf("Failed to generate PIN: %v", err)
		}
		pin = generated
		fmt.Printf("Generated PIN: %s\n", pin)
		fmt.Println()
	}

	hash, err := utils.HashAdminPIN(pin)
	if err != nil {
		log.Fatalf("Failed to hash PIN: %v", err)
	}

	fmt.Println("Add these to the terminal's .env file:")
	fmt.Println()
	fmt.Printf("ADMIN_PIN_HASH=%s\n", hash)
	fmt.Printf("TERMINAL_DEVICE_ID=%s\n", uuid.New())
	fmt.Println()
	fmt.Println("Give the PIN itself to facility staff only; the hash alone")
	fmt.Println("cannot be used to unlock the maintenance routes.")
	fmt.Println("===========================================")
}
