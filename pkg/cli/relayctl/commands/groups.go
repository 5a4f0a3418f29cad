package commands

// Commands in this group require a connection to the relay server, which is
// set up by the root command before they run.
const GroupIdClientCommands = "client"
