package frame

import (
	"fmt"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"time"
)

const defaultMessage = "Hello from client"

var (
	SendCmd = &cobra.Command{
		Use:     "send [messages...]",
		Short:   "Sends messages to a frame server and prints the replies",
		Long:    `Sends every argument as one frame over a single connection and prints the reply to each of them. Without arguments "` + defaultMessage + `" is sent.`,
		PreRunE: processClientConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{defaultMessage}
			}

			c, err := newClient(nil)
			if err != nil {
				return err
			}
			defer c.Close()

			noReply := viper.GetBool("no-reply")
			for _, msg := range args {
				if noReply {
					if err := c.Send([]byte(msg)); err != nil {
						return err
					}
					fmt.Printf("sent %d bytes\n", len(msg))
					continue
				}

				resp, err := c.Do([]byte(msg))
				if err != nil {
					return err
				}
				fmt.Println(string(resp))
			}

			if viper.GetBool("stats") && !noReply {
				stats := c.Stats()
				fmt.Printf("\n%d request(s), mean %s, max %s\n",
					stats.Count(), time.Duration(stats.Mean()), time.Duration(stats.Max()))
			}
			return nil
		},
	}
)

func init() {
	key := "no-reply"
	SendCmd.Flags().Bool(key, false, "Do not wait for replies (for the discard handler)")
	key = "stats"
	SendCmd.Flags().Bool(key, false, "Print the round trip latency after all messages were sent")
}
