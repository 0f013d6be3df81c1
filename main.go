// sharepreview: see how a link unfurls on social platforms.
//
//	sharepreview preview [flags] <URL>
//	sharepreview inspect [flags] <URL>
package main

import "github.com/adammathes/sharepreview/cmd"

func main() {
	cmd.Execute()
}
