// Package sshkit provides the SSH/SFTP transport session used by
// deployments.
//
// A session is one authenticated SSH connection to the deployment target
// plus an SFTP channel derived over it. It supports:
//   - uploading single files over SFTP
//   - probing and creating remote directories
//   - running remote shell commands and capturing their output and exit
//     status
//
// # Basic Usage
//
// Open a session and upload a file:
//
//	config := sshkit.Config{
//		Host:     "203.0.113.7",
//		User:     "deploy",
//		Password: password,
//	}
//
//	client, err := sshkit.NewClient(config)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.UploadFile(ctx, "/local/path/file.txt", "/remote/path/file.txt")
//
// Remote command exit codes are returned as data, so callers decide which
// failures are fatal:
//
//	res, err := client.RunCommand(ctx, "docker ps")
//	if err != nil {
//		log.Fatal(err) // transport fault
//	}
//	if res.ExitCode != 0 {
//		log.Printf("command exited with %d", res.ExitCode)
//	}
package sshkit
