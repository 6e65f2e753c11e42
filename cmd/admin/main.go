package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"roomchat/backend/internal/config"
	"roomchat/backend/internal/storage"
)

const usage = `Usage: admin <command> [args]

Commands:
  create-room <name> <creator_email>
  add-member <room_id> <email>
  remove-member <room_id> <email>
  history <room_id> [limit]
  revoke-token <token>`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	ctx := context.Background()
	command := os.Args[1]

	if command == "revoke-token" {
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin revoke-token <token>")
			os.Exit(1)
		}
		if err := revokeToken(ctx, cfg, os.Args[2]); err != nil {
			log.Fatalf("Error revoking token: %v", err)
		}
		fmt.Println("Token has been revoked.")
		return
	}

	db, err := storage.Open(cfg)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	storageSvc := storage.NewStorageService(db)

	switch command {
	case "create-room":
		if len(os.Args) != 4 {
			fmt.Println("Usage: admin create-room <name> <creator_email>")
			os.Exit(1)
		}
		room, err := createRoom(ctx, storageSvc, os.Args[2], os.Args[3])
		if err != nil {
			log.Fatalf("Error creating room: %v", err)
		}
		fmt.Printf("Room %q created with id %d.\n", room.Name, room.ID)
	case "add-member", "remove-member":
		if len(os.Args) != 4 {
			fmt.Printf("Usage: admin %s <room_id> <email>\n", command)
			os.Exit(1)
		}
		roomID := parseRoomID(os.Args[2])
		if err := changeMembership(ctx, storageSvc, command == "add-member", roomID, os.Args[3]); err != nil {
			log.Fatalf("Error updating membership: %v", err)
		}
		fmt.Printf("Membership of %s in room %d updated.\n", os.Args[3], roomID)
	case "history":
		if len(os.Args) < 3 || len(os.Args) > 4 {
			fmt.Println("Usage: admin history <room_id> [limit]")
			os.Exit(1)
		}
		limit := config.DefaultHistoryLimit
		if len(os.Args) == 4 {
			limit, err = strconv.Atoi(os.Args[3])
			if err != nil || limit < 1 {
				fmt.Println("Invalid limit. Please provide a positive integer.")
				os.Exit(1)
			}
		}
		if err := printHistory(ctx, storageSvc, parseRoomID(os.Args[2]), min(limit, config.MaxHistoryLimit)); err != nil {
			log.Fatalf("Error reading history: %v", err)
		}
	default:
		fmt.Println("Unknown command")
		fmt.Println(usage)
		os.Exit(1)
	}
}
