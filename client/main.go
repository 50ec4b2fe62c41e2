package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/wfunc/roulette/logger"
	"github.com/wfunc/roulette/network"
)

var (
	flagURL       string
	flagRoom      string
	flagWallet    string
	flagSeat      int
	flagWatch     bool
	flagHeartbeat time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "roulette-bot",
	Short: "Join a roulette room, take a seat and print every event",
	RunE:  runBot,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&flagURL, "url", "ws://localhost:8080/ws", "server WebSocket URL")
	flags.StringVar(&flagRoom, "room", "main-room", "room to join")
	flags.StringVar(&flagWallet, "wallet", "", "identity to join as (random when empty)")
	flags.IntVar(&flagSeat, "seat", 1, "seat to select after joining, 0 to stay unseated")
	flags.BoolVar(&flagWatch, "watch", false, "only watch the room, do not join")
	flags.DurationVar(&flagHeartbeat, "heartbeat", 10*time.Second, "interval between heartbeat packets")
}

func main() {
	logger.Init("info")
	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// send formats and sends a message to the WebSocket server.
func send(c *websocket.Conn, msgID uint16, v interface{}) error {
	var data []byte
	if v != nil {
		var err error
		if data, err = json.Marshal(v); err != nil {
			return err
		}
	}
	packet, err := network.Frame(msgID, data)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func eventName(msgID uint16) string {
	switch msgID {
	case network.MsgTypeRoomJoined:
		return network.RoomJoined{}.Event()
	case network.MsgTypeRoomLeft:
		return network.RoomLeft{}.Event()
	case network.MsgTypeSeatSelected:
		return network.SeatSelected{}.Event()
	case network.MsgTypeRoomUpdate:
		return network.RoomUpdate{}.Event()
	case network.MsgTypeTimerUpdate:
		return network.TimerUpdate{}.Event()
	case network.MsgTypeGameStart:
		return network.GameStart{}.Event()
	case network.MsgTypePlayerShot:
		return network.PlayerShot{}.Event()
	case network.MsgTypeRevolverSpin:
		return network.RevolverSpin{}.Event()
	case network.MsgTypeGameEnd:
		return network.GameEnd{}.Event()
	case network.MsgTypeRoomReset:
		return network.RoomReset{}.Event()
	case network.MsgTypeError:
		return network.ErrorMessage{}.Event()
	}
	return fmt.Sprintf("unknown(%d)", msgID)
}

func runBot(cmd *cobra.Command, args []string) error {
	if flagWallet == "" {
		flagWallet = "bot-" + uuid.NewString()
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	logger.Log.Infof("Connecting to %s", flagURL)
	c, _, err := websocket.DefaultDialer.Dial(flagURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer c.Close()

	packets := make(chan *network.Packet)
	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				logger.Log.Infof("Read error: %v", err)
				return
			}
			packet, err := network.Unframe(message)
			if err != nil {
				logger.Log.Warnf("Received invalid packet of size %d", len(message))
				continue
			}
			packets <- packet
		}
	}()

	if flagWatch {
		err = send(c, network.MsgTypeWatchRoom, network.WatchRequest{RoomID: flagRoom})
	} else {
		err = send(c, network.MsgTypeJoinRoom, network.JoinRequest{RoomID: flagRoom, WalletAddress: flagWallet})
	}
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}

	heartbeat := time.NewTicker(flagHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-done:
			return nil
		case packet := <-packets:
			logger.Log.Infof("<- %s %s", eventName(packet.MsgID), string(packet.Data))
			if packet.MsgID == network.MsgTypeRoomJoined && flagSeat > 0 {
				seat := flagSeat
				if err := send(c, network.MsgTypeSelectSeat, network.SelectSeatRequest{RoomID: flagRoom, SeatNumber: &seat}); err != nil {
					return fmt.Errorf("write: %w", err)
				}
			}
		case <-heartbeat.C:
			if err := send(c, network.MsgTypeHeartbeat, nil); err != nil {
				return fmt.Errorf("write heartbeat: %w", err)
			}
		case <-interrupt:
			logger.Log.Info("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				logger.Log.Infof("Write close error: %v", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return nil
		}
	}
}
